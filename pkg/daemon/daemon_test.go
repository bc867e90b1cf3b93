/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/httpclient"
)

type fakeStore struct {
	content     []byte
	downloadErr error
	downloads   []string
	sawDeadline bool
}

func (f *fakeStore) EnsureBucket(ctx context.Context, bucket string) error { return nil }

func (f *fakeStore) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	return nil
}

func (f *fakeStore) Download(ctx context.Context, bucket, key, localPath string) error {
	_, f.sawDeadline = ctx.Deadline()
	if f.downloadErr != nil {
		return f.downloadErr
	}
	f.downloads = append(f.downloads, bucket+"/"+key)
	return os.WriteFile(localPath, f.content, 0644)
}

func (f *fakeStore) Delete(ctx context.Context, bucket, key string) error { return nil }

type fakeBroker struct {
	published map[string][][]byte
	subs      map[string]mqtt.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		published: map[string][][]byte{},
		subs:      map[string]mqtt.MessageHandler{},
	}
}

func (f *fakeBroker) Connect() error { return nil }
func (f *fakeBroker) Disconnect()    {}

func (f *fakeBroker) Publish(topic string, payload []byte) error {
	f.published[topic] = append(f.published[topic], payload)
	return nil
}

func (f *fakeBroker) Subscribe(topic string, handler mqtt.MessageHandler) error {
	f.subs[topic] = handler
	return nil
}

type fakeCloud struct {
	healthy bool
	batches int
}

func (f *fakeCloud) Health(ctx context.Context) error {
	if !f.healthy {
		return fmt.Errorf("unreachable")
	}
	return nil
}

func (f *fakeCloud) UploadFiles(ctx context.Context, fields map[string]string, files []httpclient.FilePart) error {
	f.batches++
	return nil
}

func newTestDaemon(store *fakeStore) (*Daemon, *fakeBroker, *fakeCloud) {
	broker := newFakeBroker()
	cloud := &fakeCloud{healthy: true}
	topics := &mqtt.Config{
		Host:         "localhost",
		Port:         1883,
		Transport:    "tcp",
		TopicPattern: "ota/<robot_id>/<operation>",
	}
	return NewDaemon("robot_a", store, broker, topics, cloud), broker, cloud
}

func TestOnDeployMessage(t *testing.T) {
	d, _, _ := newTestDaemon(&fakeStore{})

	d.onDeployMessage("ota/robot_a/deploy",
		[]byte(`{"job_id":"job-1","bucket":"files","object_name":"app.bin_1","deploy_path":"/opt/app.bin"}`))

	jobs := d.JobSnapshot()
	require.Contains(t, jobs, "job-1")
	assert.Equal(t, common.JobStatusReceived, jobs["job-1"].Status)
	assert.Equal(t, 1, d.deployQueue.Len())
}

func TestOnDeployMessageDuplicate(t *testing.T) {
	d, _, _ := newTestDaemon(&fakeStore{})
	payload := []byte(`{"job_id":"job-1","bucket":"files","object_name":"app.bin_1","deploy_path":"/opt/app.bin"}`)

	d.onDeployMessage("ota/robot_a/deploy", payload)
	d.onDeployMessage("ota/robot_a/deploy", payload)

	// Redelivery is dropped: one map entry, one queued command.
	assert.Len(t, d.JobSnapshot(), 1)
	assert.Equal(t, 1, d.deployQueue.Len())
}

func TestOnDeployMessageMalformed(t *testing.T) {
	d, _, _ := newTestDaemon(&fakeStore{})

	d.onDeployMessage("ota/robot_a/deploy", []byte("not-json"))
	d.onDeployMessage("ota/robot_a/deploy", []byte(`{"job_id":"job-1"}`))

	assert.Len(t, d.JobSnapshot(), 0)
	assert.Equal(t, 0, d.deployQueue.Len())
}

func TestExecuteDeploySuccess(t *testing.T) {
	store := &fakeStore{content: []byte("artifact")}
	d, _, _ := newTestDaemon(store)
	deployPath := filepath.Join(t.TempDir(), "nested", "app.bin")

	msg := &common.DeployMessage{
		JobId:      "job-1",
		Bucket:     "files",
		ObjectName: "app.bin_1",
		DeployPath: deployPath,
	}
	d.onDeployMessage("ota/robot_a/deploy",
		[]byte(`{"job_id":"job-1","bucket":"files","object_name":"app.bin_1","deploy_path":"`+deployPath+`"}`))
	d.executeDeploy(context.Background(), msg)

	jobs := d.JobSnapshot()
	assert.Equal(t, common.JobStatusCompleted, jobs["job-1"].Status)
	data, err := os.ReadFile(deployPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), data)
}

// A deploy download is bounded only by the store client; the daemon must not
// impose its own deadline, or a large image would be failed mid-transfer.
func TestExecuteDeployNoDownloadDeadline(t *testing.T) {
	store := &fakeStore{content: []byte("artifact")}
	d, _, _ := newTestDaemon(store)

	d.executeDeploy(context.Background(), &common.DeployMessage{
		JobId:      "job-1",
		Bucket:     "files",
		ObjectName: "big.img",
		DeployPath: filepath.Join(t.TempDir(), "big.img"),
	})

	require.Len(t, store.downloads, 1)
	assert.False(t, store.sawDeadline)
}

func TestExecuteDeployFailure(t *testing.T) {
	store := &fakeStore{downloadErr: fmt.Errorf("object missing")}
	d, _, _ := newTestDaemon(store)

	msg := &common.DeployMessage{
		JobId:      "job-1",
		Bucket:     "files",
		ObjectName: "gone.bin",
		DeployPath: filepath.Join(t.TempDir(), "gone.bin"),
	}
	d.executeDeploy(context.Background(), msg)

	jobs := d.JobSnapshot()
	assert.Equal(t, common.JobStatusFailed, jobs["job-1"].Status)
	assert.Contains(t, jobs["job-1"].ErrorMsg, "object missing")
}

func TestAckEvictsJob(t *testing.T) {
	d, _, _ := newTestDaemon(&fakeStore{})
	d.jobs["job-1"] = common.JobState{Status: common.JobStatusCompleted}

	// Terminal status alone never evicts; only the ack does.
	d.reportState()
	assert.Len(t, d.JobSnapshot(), 1)

	d.onAckMessage("ota/robot_a/ack", []byte("job-1"))
	assert.Len(t, d.JobSnapshot(), 0)

	// An ack for an unknown job is a no-op.
	d.onAckMessage("ota/robot_a/ack", []byte("ghost"))
	assert.Len(t, d.JobSnapshot(), 0)
}

func TestReportStatePublishesSnapshot(t *testing.T) {
	d, broker, _ := newTestDaemon(&fakeStore{})

	// An empty map is still reported; it is the liveness signal that lets
	// the cloud resend lost commands.
	d.reportState()
	require.Len(t, broker.published["ota/robot_a/state"], 1)
	assert.JSONEq(t, `{}`, string(broker.published["ota/robot_a/state"][0]))

	d.jobs["job-1"] = common.JobState{Status: common.JobStatusFailed, ErrorMsg: "disk full"}
	d.reportState()
	require.Len(t, broker.published["ota/robot_a/state"], 2)
	assert.JSONEq(t, `{"job-1":{"status":"FAILED","error_msg":"disk full"}}`,
		string(broker.published["ota/robot_a/state"][1]))
}

func TestStartSubscribes(t *testing.T) {
	d, broker, _ := newTestDaemon(&fakeStore{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))
	assert.Contains(t, broker.subs, "ota/robot_a/deploy")
	assert.Contains(t, broker.subs, "ota/robot_a/ack")
}

func TestUploadFilesSkipsUnreadable(t *testing.T) {
	d, _, cloud := newTestDaemon(&fakeStore{})
	dir := t.TempDir()
	good := filepath.Join(dir, "good.bin")
	require.NoError(t, os.WriteFile(good, []byte("data"), 0644))

	err := d.uploadFiles(context.Background(), &UploadJob{Files: []UploadFileInfo{
		{LocalPath: good, DeployPath: "/opt/good.bin"},
		{LocalPath: filepath.Join(dir, "missing.bin")},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, cloud.batches)
}

func TestUploadJobValidate(t *testing.T) {
	assert.Error(t, (&UploadJob{}).Validate())
	assert.Error(t, (&UploadJob{Files: []UploadFileInfo{{}}}).Validate())
	assert.NoError(t, (&UploadJob{Files: []UploadFileInfo{{LocalPath: "/tmp/a"}}}).Validate())
}

func TestEnqueueUpload(t *testing.T) {
	d, _, _ := newTestDaemon(&fakeStore{})
	require.Error(t, d.EnqueueUpload(&UploadJob{}))
	require.NoError(t, d.EnqueueUpload(&UploadJob{Files: []UploadFileInfo{{LocalPath: "/tmp/a"}}}))
	assert.Equal(t, 1, d.uploadQueue.Len())
}

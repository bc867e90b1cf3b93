/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/s3"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/httpclient"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

const (
	// reportInterval is how often the daemon publishes its full job map.
	reportInterval = 500 * time.Millisecond

	// healthRetryInterval paces health probes while the cloud is unreachable.
	healthRetryInterval = 10 * time.Second
)

// Daemon is the robot-side agent. It executes deploy commands from the
// broker, reports its job map until the cloud acks, and pushes local files to
// the cloud on request.
type Daemon struct {
	robotID string
	store   s3.Interface
	broker  mqtt.Interface
	topics  *mqtt.Config
	cloud   CloudClient

	// jobs is every deployment the daemon has heard of and the cloud has not
	// acked yet. The cloud treats absence from this map as "command lost".
	mu   sync.Mutex
	jobs map[string]common.JobState

	deployQueue workqueue.TypedRateLimitingInterface[*common.DeployMessage]
	uploadQueue workqueue.TypedRateLimitingInterface[*UploadJob]
}

// NewDaemon assembles a Daemon from its dependencies.
func NewDaemon(robotID string, store s3.Interface, broker mqtt.Interface, topics *mqtt.Config, cloud CloudClient) *Daemon {
	return &Daemon{
		robotID: robotID,
		store:   store,
		broker:  broker,
		topics:  topics,
		cloud:   cloud,
		jobs:    make(map[string]common.JobState),
		deployQueue: workqueue.NewTypedRateLimitingQueueWithConfig(
			workqueue.DefaultTypedControllerRateLimiter[*common.DeployMessage](),
			workqueue.TypedRateLimitingQueueConfig[*common.DeployMessage]{Name: "deploy"}),
		uploadQueue: workqueue.NewTypedRateLimitingQueueWithConfig(
			workqueue.DefaultTypedControllerRateLimiter[*UploadJob](),
			workqueue.TypedRateLimitingQueueConfig[*UploadJob]{Name: "upload"}),
	}
}

// Start subscribes to the daemon's topics and runs its workers until ctx is
// cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.broker.Subscribe(d.topics.DeployTopic(d.robotID), d.onDeployMessage); err != nil {
		return err
	}
	if err := d.broker.Subscribe(d.topics.AckTopic(d.robotID), d.onAckMessage); err != nil {
		return err
	}
	go d.runDeployWorker(ctx)
	go d.runUploadWorker(ctx)
	go d.runReporter(ctx)
	go func() {
		<-ctx.Done()
		d.deployQueue.ShutDown()
		d.uploadQueue.ShutDown()
	}()
	klog.Infof("daemon started for robot %s", d.robotID)
	return nil
}

// EnqueueUpload accepts one upload batch from the local API.
func (d *Daemon) EnqueueUpload(job *UploadJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	d.uploadQueue.Add(job)
	return nil
}

// onDeployMessage handles one deploy command. Commands are delivered at least
// once; a job id already present in the map is a duplicate and is dropped.
func (d *Daemon) onDeployMessage(topic string, payload []byte) {
	var msg common.DeployMessage
	if err := jsonutil.Unmarshal(payload, &msg); err != nil {
		klog.ErrorS(err, "dropping malformed deploy command")
		return
	}
	if err := msg.Validate(); err != nil {
		klog.ErrorS(err, "dropping invalid deploy command", "jobId", msg.JobId)
		return
	}
	d.mu.Lock()
	if _, known := d.jobs[msg.JobId]; known {
		d.mu.Unlock()
		klog.V(2).Infof("ignoring duplicate deploy command for job %s", msg.JobId)
		return
	}
	d.jobs[msg.JobId] = common.JobState{Status: common.JobStatusReceived}
	d.mu.Unlock()

	d.deployQueue.Add(&msg)
}

// onAckMessage evicts one acked job from the map. Only the ack removes map
// entries; terminal jobs keep being reported until it arrives.
func (d *Daemon) onAckMessage(topic string, payload []byte) {
	jobId := string(payload)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, known := d.jobs[jobId]; !known {
		klog.V(2).Infof("ignoring ack for unknown job %s", jobId)
		return
	}
	delete(d.jobs, jobId)
	klog.Infof("job %s acked and evicted", jobId)
}

// runDeployWorker executes deploy commands one at a time, in arrival order.
func (d *Daemon) runDeployWorker(ctx context.Context) {
	for {
		msg, shutdown := d.deployQueue.Get()
		if shutdown {
			return
		}
		d.executeDeploy(ctx, msg)
		d.deployQueue.Forget(msg)
		d.deployQueue.Done(msg)
	}
}

// executeDeploy downloads the artifact to its deploy path and records the
// terminal status.
func (d *Daemon) executeDeploy(ctx context.Context, msg *common.DeployMessage) {
	klog.Infof("deploying %s/%s to %s (job %s)", msg.Bucket, msg.ObjectName, msg.DeployPath, msg.JobId)
	err := d.downloadArtifact(ctx, msg)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		klog.ErrorS(err, "deploy failed", "jobId", msg.JobId)
		d.jobs[msg.JobId] = common.JobState{Status: common.JobStatusFailed, ErrorMsg: err.Error()}
		return
	}
	d.jobs[msg.JobId] = common.JobState{Status: common.JobStatusCompleted}
}

// downloadArtifact fetches the artifact straight to its deploy path. No
// deadline is applied here: a large image may legitimately take minutes, so
// the transfer is bounded only by the store client itself.
func (d *Daemon) downloadArtifact(ctx context.Context, msg *common.DeployMessage) error {
	if err := os.MkdirAll(filepath.Dir(msg.DeployPath), 0755); err != nil {
		return err
	}
	return d.store.Download(ctx, msg.Bucket, msg.ObjectName, msg.DeployPath)
}

// runReporter publishes the full job map every tick. The report doubles as a
// liveness signal: an empty map tells the cloud the robot is listening, which
// is what triggers resends of lost commands.
func (d *Daemon) runReporter(ctx context.Context) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.reportState()
		}
	}
}

// reportState snapshots the job map under the lock and publishes it outside.
func (d *Daemon) reportState() {
	d.mu.Lock()
	snapshot := make(map[string]common.JobState, len(d.jobs))
	for jobId, state := range d.jobs {
		snapshot[jobId] = state
	}
	d.mu.Unlock()

	payload := jsonutil.MarshalSilently(snapshot)
	if payload == nil {
		klog.Error("failed to marshal state report")
		return
	}
	if err := d.broker.Publish(d.topics.StateTopic(d.robotID), payload); err != nil {
		klog.V(2).ErrorS(err, "failed to publish state report")
	}
}

// runUploadWorker pushes queued upload batches to the cloud, one at a time.
func (d *Daemon) runUploadWorker(ctx context.Context) {
	for {
		job, shutdown := d.uploadQueue.Get()
		if shutdown {
			return
		}
		if err := d.uploadFiles(ctx, job); err != nil {
			klog.ErrorS(err, "upload batch failed")
		}
		d.uploadQueue.Forget(job)
		d.uploadQueue.Done(job)
	}
}

// uploadFiles waits for the cloud to be healthy, then pushes one batch.
// Unopenable local files are skipped with a log so one bad path does not sink
// the batch.
func (d *Daemon) uploadFiles(ctx context.Context, job *UploadJob) error {
	if err := d.waitForCloud(ctx); err != nil {
		return err
	}

	var infos []*service.FileInfo
	var parts []httpclient.FilePart
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			logCloseError(f, f.Name())
		}
	}()
	for _, info := range job.Files {
		f, err := os.Open(info.LocalPath)
		if err != nil {
			klog.ErrorS(err, "skipping unreadable file", "path", info.LocalPath)
			continue
		}
		opened = append(opened, f)
		infos = append(infos, &service.FileInfo{
			Bucket:       info.Bucket,
			ObjectName:   info.ObjectName,
			RobotId:      d.robotID,
			DeployPath:   info.DeployPath,
			RobotType:    info.RobotType,
			RobotVersion: info.RobotVersion,
			FileMetadata: info.FileMetadata,
		})
		parts = append(parts, httpclient.FilePart{
			FieldName: "files",
			FileName:  filepath.Base(info.LocalPath),
			Reader:    f,
		})
	}
	if len(parts) == 0 {
		klog.Warning("upload batch had no readable files, nothing to push")
		return nil
	}
	fields, err := buildUploadForm(infos)
	if err != nil {
		return err
	}
	if err = d.cloud.UploadFiles(ctx, fields, parts); err != nil {
		return err
	}
	klog.Infof("pushed %d file(s) to the cloud service", len(parts))
	return nil
}

// waitForCloud blocks until the cloud's health endpoint answers, probing at a
// constant interval.
func (d *Daemon) waitForCloud(ctx context.Context) error {
	probe := func() error {
		return d.cloud.Health(ctx)
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(healthRetryInterval), ctx)
	return backoff.Retry(probe, policy)
}

// JobSnapshot returns a copy of the current job map.
func (d *Daemon) JobSnapshot() map[string]common.JobState {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := make(map[string]common.JobState, len(d.jobs))
	for jobId, state := range d.jobs {
		snapshot[jobId] = state
	}
	return snapshot
}

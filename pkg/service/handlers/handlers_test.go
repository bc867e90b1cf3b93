/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	dbclient "github.com/nvidia-isaac/ota-file-service/pkg/database/client"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/s3"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
)

// stubDB overrides the registry calls the tests exercise; anything else
// panics via the embedded nil interface.
type stubDB struct {
	dbclient.Interface
	files     []*dbclient.File
	inserted  []*dbclient.File
	jobs      map[string]*dbclient.DeployJob
	lastQuery sqrl.Sqlizer
}

func (s *stubDB) SelectFiles(ctx context.Context, query sqrl.Sqlizer) ([]*dbclient.File, error) {
	s.lastQuery = query
	return s.files, nil
}

func (s *stubDB) UpdateFile(ctx context.Context, bucket, objectName string, update *dbclient.FileUpdate) (*dbclient.File, error) {
	for _, f := range s.files {
		if f.Bucket == bucket && f.ObjectName == objectName {
			return f, nil
		}
	}
	return nil, commonerrors.NewNotFound("File", bucket+"/"+objectName)
}

func (s *stubDB) GetFile(ctx context.Context, bucket, objectName string) (*dbclient.File, error) {
	for _, f := range s.files {
		if f.Bucket == bucket && f.ObjectName == objectName {
			return f, nil
		}
	}
	return nil, commonerrors.NewNotFound("File", bucket+"/"+objectName)
}

func (s *stubDB) InsertFile(ctx context.Context, file *dbclient.File) error {
	s.inserted = append(s.inserted, file)
	return nil
}

func (s *stubDB) InsertDeployJob(ctx context.Context, jobId, robotId, deployPath, deployMsg string) error {
	if s.jobs == nil {
		s.jobs = map[string]*dbclient.DeployJob{}
	}
	s.jobs[jobId] = &dbclient.DeployJob{JobId: jobId, RobotId: robotId, DeployPath: deployPath, DeployMsg: deployMsg}
	return nil
}

func (s *stubDB) GetDeployJob(ctx context.Context, jobId string) (*dbclient.DeployJob, error) {
	if job, ok := s.jobs[jobId]; ok {
		return job, nil
	}
	return nil, commonerrors.NewNotFound("DeployJob", jobId)
}

type stubStore struct {
	s3.Interface
	uploads int
}

func (s *stubStore) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	s.uploads++
	return nil
}

type stubBroker struct {
	mqtt.Interface
	published map[string][][]byte
}

func (s *stubBroker) Publish(topic string, payload []byte) error {
	if s.published == nil {
		s.published = map[string][][]byte{}
	}
	s.published[topic] = append(s.published[topic], payload)
	return nil
}

func newTestRouter(db *stubDB) (*gin.Engine, *stubStore, *stubBroker) {
	gin.SetMode(gin.TestMode)
	store := &stubStore{}
	broker := &stubBroker{}
	topics := &mqtt.Config{
		Host:         "localhost",
		Port:         1883,
		Transport:    "tcp",
		TopicPattern: "ota/<robot_id>/<operation>",
	}
	engine := gin.New()
	InitRouters(engine, NewHandler(service.New(db, store, broker, topics)))
	return engine, store, broker
}

// multipartBody builds a batch request body with one info list and the given
// named files.
func multipartBody(t *testing.T, infoList string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("file_info_list", infoList))
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Running")
}

func TestUploadFiles(t *testing.T) {
	db := &stubDB{}
	router, store, _ := newTestRouter(db)

	body, contentType := multipartBody(t,
		`{"file_list":[{"robot_id":"robot_a","deploy_path":"/opt/app.bin"}]}`,
		map[string]string{"app.bin": "content"})
	req := httptest.NewRequest(http.MethodPost, "/file/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []*service.FileTaskResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, common.TaskStateUploaded, results[0].State)
	assert.Equal(t, 1, store.uploads)
	assert.Len(t, db.inserted, 1)
}

func TestUploadFilesCountMismatch(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})

	body, contentType := multipartBody(t,
		`{"file_list":[{},{}]}`,
		map[string]string{"app.bin": "content"})
	req := httptest.NewRequest(http.MethodPost, "/file/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "do not match")
}

func TestDeployFilesCreatesJob(t *testing.T) {
	db := &stubDB{}
	router, _, broker := newTestRouter(db)

	body, contentType := multipartBody(t,
		`{"file_list":[{"robot_id":"robot_a","deploy_path":"/opt/app.bin"}]}`,
		map[string]string{"app.bin": "content"})
	req := httptest.NewRequest(http.MethodPost, "/file/deploy", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []*service.FileTaskResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, common.TaskStatePending, results[0].State)
	assert.NotEmpty(t, results[0].JobId)
	assert.Len(t, broker.published["ota/robot_a/deploy"], 1)
}

func TestDeployFilesMissingRobotId(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})

	body, contentType := multipartBody(t,
		`{"file_list":[{"deploy_path":"/opt/app.bin"}]}`,
		map[string]string{"app.bin": "content"})
	req := httptest.NewRequest(http.MethodPost, "/file/deploy", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Batch failure: 400 with per-file detail.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var batch BatchError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	require.Len(t, batch.Detail, 1)
	assert.Equal(t, common.TaskStateFailed, batch.Detail[0].State)
	assert.Contains(t, batch.Detail[0].ErrorMsg, "robot_id")
}

func TestDeployFromStoreNotFound(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/file/deploy_from_s3?object_name=missing.bin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), commonerrors.FileNotFound)
}

// The endpoint binds query parameters, not a JSON body.
func TestDeployFromStore(t *testing.T) {
	db := &stubDB{files: []*dbclient.File{{
		Bucket:     common.DefaultBucket,
		ObjectName: "app.bin_1",
		RobotId:    "robot_a",
		DeployPath: "/opt/app.bin",
	}}}
	router, _, broker := newTestRouter(db)

	target := "/file/deploy_from_s3?robot_id=robot_a&bucket=files&object_name=app.bin_1&deploy_path=" +
		url.QueryEscape("/opt/app.bin")
	req := httptest.NewRequest(http.MethodPost, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "job_id")
	assert.Len(t, broker.published["ota/robot_a/deploy"], 1)
}

func TestDeployFromStoreMissingObjectName(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/file/deploy_from_s3?robot_id=robot_a", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFiles(t *testing.T) {
	db := &stubDB{files: []*dbclient.File{{Bucket: "files", ObjectName: "a"}}}
	router, _, _ := newTestRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file/list?robot_id=robot_a", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var files []*dbclient.File
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Len(t, files, 1)
}

// The file_metadata parameter is a JSON object; its pairs become per-key
// predicates, not a predicate on a key named "file_metadata".
func TestListFilesMetadataFilter(t *testing.T) {
	db := &stubDB{}
	router, _, _ := newTestRouter(db)

	target := "/file/list?file_metadata=" + url.QueryEscape(`{"color":"red"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, db.lastQuery)
	sql, args, err := db.lastQuery.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "file_metadata->>? = ?")
	assert.Equal(t, []interface{}{"color", "red"}, args)
}

func TestListFilesBadMetadata(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file/list?file_metadata=not-json", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFilesBadValid(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file/list?valid=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Updating a row that does not exist is a bad request, not a 404.
func TestUpdateFileMissingRow(t *testing.T) {
	router, _, _ := newTestRouter(&stubDB{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("file_info", `{"object_name":"missing.bin"}`))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPatch, "/file/update", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}

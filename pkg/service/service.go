/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package service

import (
	"context"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	dbclient "github.com/nvidia-isaac/ota-file-service/pkg/database/client"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/s3"
)

// Service is the cloud-side deployment coordinator. It owns the file
// registry, the object store, and the broker side of the deploy protocol.
type Service struct {
	db     dbclient.Interface
	store  s3.Interface
	broker mqtt.Interface
	topics *mqtt.Config
}

// New assembles a Service from its dependencies.
func New(db dbclient.Interface, store s3.Interface, broker mqtt.Interface, topics *mqtt.Config) *Service {
	return &Service{
		db:     db,
		store:  store,
		broker: broker,
		topics: topics,
	}
}

// Start subscribes to every robot's state topic. State messages drive the
// whole job lifecycle, see HandleState.
func (s *Service) Start() error {
	return s.broker.Subscribe(s.topics.StateWildcard(), s.onStateMessage)
}

// ListFiles returns the registry rows matching the filter, newest first.
func (s *Service) ListFiles(ctx context.Context, filter *FileFilter) ([]*dbclient.File, error) {
	return s.db.SelectFiles(ctx, filter.Query())
}

// SetFileValid flips the validity flag of one file.
func (s *Service) SetFileValid(ctx context.Context, bucket, objectName string, valid bool) (*dbclient.File, error) {
	bucket = defaultBucket(bucket)
	return s.db.UpdateFile(ctx, bucket, objectName, &dbclient.FileUpdate{
		Valid:     &valid,
		Timestamp: nowUTC(),
	})
}

// DeleteFile removes one file from the registry and the object store. The
// schema cascade drops any deploy_target rows pointing at it.
func (s *Service) DeleteFile(ctx context.Context, bucket, objectName string) error {
	bucket = defaultBucket(bucket)
	if err := s.db.DeleteFile(ctx, bucket, objectName); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, bucket, objectName); err != nil {
		// The registry row is already gone; the orphaned object is
		// harmless and unreachable through the API.
		klog.ErrorS(err, "failed to delete object from store", "bucket", bucket, "objectName", objectName)
	}
	return nil
}

// DownloadFile fetches one file into a temp directory and returns the local
// path together with its original filename. The caller must invoke cleanup
// once the file has been served.
func (s *Service) DownloadFile(ctx context.Context, bucket, objectName string) (localPath, fileName string, cleanup func(), err error) {
	bucket = defaultBucket(bucket)
	file, err := s.db.GetFile(ctx, bucket, objectName)
	if err != nil {
		return "", "", nil, err
	}
	dir, err := os.MkdirTemp("", "ota-download-")
	if err != nil {
		return "", "", nil, commonerrors.NewInternalError(err.Error())
	}
	cleanup = func() { os.RemoveAll(dir) }

	fileName = file.FileName
	if fileName == "" {
		fileName = objectName
	}
	localPath = filepath.Join(dir, filepath.Base(fileName))
	if err = s.store.Download(ctx, bucket, objectName, localPath); err != nil {
		cleanup()
		return "", "", nil, commonerrors.NewStorageError(err.Error())
	}
	return localPath, fileName, cleanup, nil
}

// DeployTargets returns the installed state of one robot.
func (s *Service) DeployTargets(ctx context.Context, robotId string) ([]*dbclient.DeployTarget, error) {
	return s.db.SelectDeployTargets(ctx, robotId)
}

// Job returns one deploy job by id.
func (s *Service) Job(ctx context.Context, jobId string) (*dbclient.DeployJob, error) {
	return s.db.GetDeployJob(ctx, jobId)
}

// Jobs returns the job history of one robot, newest first.
func (s *Service) Jobs(ctx context.Context, robotId string, limit int) ([]*dbclient.DeployJob, error) {
	return s.db.SelectJobs(ctx, robotId, limit)
}

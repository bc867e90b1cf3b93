/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

// UploadAndDeploy uploads one file and, when it lands successfully, creates a
// deploy job for it. The per-file result never carries an error upward; a
// failed file is reported as FAILED in the batch response.
func (s *Service) UploadAndDeploy(ctx context.Context, info *FileInfo, filename string,
	file io.ReadSeeker, timestamp time.Time) *FileTaskResult {
	result := &FileTaskResult{
		Bucket:     info.Bucket,
		ObjectName: info.ObjectName,
		RobotId:    info.RobotId,
		DeployPath: info.DeployPath,
		Filename:   filename,
	}
	row, err := s.UploadFile(ctx, info, filename, file, timestamp, false)
	if err != nil {
		result.State = common.TaskStateFailed
		result.ErrorMsg = err.Error()
		return result
	}
	result.Bucket = row.Bucket
	result.ObjectName = row.ObjectName
	result.State = common.TaskStateUploaded

	if info.RobotId == "" {
		result.State = common.TaskStateFailed
		result.ErrorMsg = "robot_id is required to deploy"
		return result
	}
	if info.DeployPath == "" {
		result.State = common.TaskStateFailed
		result.ErrorMsg = "deploy_path is required to deploy"
		return result
	}
	jobId, err := s.CreateDeployJob(ctx, info.RobotId, row.Bucket, row.ObjectName, info.DeployPath)
	if err != nil {
		result.State = common.TaskStateFailed
		result.ErrorMsg = err.Error()
		return result
	}
	result.State = common.TaskStatePending
	result.JobId = jobId
	return result
}

// DeployFromStore creates a deploy job for a file that is already registered.
// An explicit deployPath overrides the file's registered one for this job
// only; the registry row is not touched.
func (s *Service) DeployFromStore(ctx context.Context, bucket, objectName, robotId, deployPath string) (string, error) {
	bucket = defaultBucket(bucket)
	file, err := s.db.GetFile(ctx, bucket, objectName)
	if err != nil {
		return "", err
	}
	if robotId == "" {
		robotId = file.RobotId
	}
	if robotId == "" {
		return "", commonerrors.NewBadRequest("robot_id is required to deploy")
	}
	if deployPath == "" {
		deployPath = file.DeployPath
	}
	if deployPath == "" {
		return "", commonerrors.NewNotFoundWithMessage(
			"the file has no registered deploy_path, parameter deploy_path is required")
	}
	return s.CreateDeployJob(ctx, robotId, bucket, objectName, deployPath)
}

// CreateDeployJob records a PENDING job and publishes its deploy command. The
// exact published payload is stored on the row so later resends are verbatim.
// A publish failure is not surfaced: the resend pass delivers the job once
// the robot reports state.
func (s *Service) CreateDeployJob(ctx context.Context, robotId, bucket, objectName, deployPath string) (string, error) {
	jobId := uuid.NewString()
	msg := &common.DeployMessage{
		JobId:      jobId,
		Bucket:     bucket,
		ObjectName: objectName,
		DeployPath: deployPath,
	}
	payload := jsonutil.MarshalSilently(msg)
	if payload == nil {
		return "", commonerrors.NewInternalError("failed to marshal deploy message")
	}
	if err := s.db.InsertDeployJob(ctx, jobId, robotId, deployPath, string(payload)); err != nil {
		return "", err
	}
	if err := s.broker.Publish(s.topics.DeployTopic(robotId), payload); err != nil {
		klog.ErrorS(err, "failed to publish deploy command, will resend on next state report",
			"jobId", jobId, "robotId", robotId)
	}
	return jobId, nil
}

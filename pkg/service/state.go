/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package service

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

// onStateMessage is the broker callback for state topics.
func (s *Service) onStateMessage(topic string, payload []byte) {
	robotId, ok := s.topics.MatchStateTopic(topic)
	if !ok {
		klog.Warningf("ignoring message on unexpected topic %s", topic)
		return
	}
	var states map[string]common.JobState
	if err := jsonutil.Unmarshal(payload, &states); err != nil {
		klog.ErrorS(err, "ignoring malformed state report", "robotId", robotId)
		return
	}
	s.HandleState(context.Background(), robotId, states)
}

// HandleState processes one state report from a robot. The report is the
// robot's full in-memory job map, so it is handled in four passes:
//
//  1. resend: republish any running job the robot did not mention, it never
//     received the command
//  2. status: persist every reported status transition
//  3. ack: acknowledge every terminal job so the robot can forget it
//  4. target: fold completed jobs into the robot's installed state
//
// Reports are delivered at least once and every pass is idempotent, so a
// duplicate report is a no-op.
func (s *Service) HandleState(ctx context.Context, robotId string, states map[string]common.JobState) {
	s.resendMissingJobs(ctx, robotId, states)

	for jobId, state := range states {
		if !state.Status.Known() {
			klog.Warningf("robot %s reported unknown status %q for job %s", robotId, state.Status, jobId)
			continue
		}
		err := s.db.UpdateDeployJobStatus(ctx, jobId, state.Status, state.ErrorMsg)
		if commonerrors.IsNotFound(err) {
			klog.Warningf("robot %s reported unknown job %s, status %s", robotId, jobId, state.Status)
		} else if err != nil {
			klog.ErrorS(err, "failed to persist job status", "jobId", jobId, "status", state.Status)
		}
	}

	// Terminal jobs are acked even when their row is unknown; the robot must
	// be able to evict them either way.
	for jobId, state := range states {
		if !state.Status.Terminal() {
			continue
		}
		if err := s.broker.Publish(s.topics.AckTopic(robotId), []byte(jobId)); err != nil {
			klog.ErrorS(err, "failed to publish ack", "jobId", jobId, "robotId", robotId)
		}
	}

	for jobId, state := range states {
		if state.Status != common.JobStatusCompleted {
			continue
		}
		s.recordDeployTarget(ctx, robotId, jobId)
	}
}

// resendMissingJobs republishes the stored deploy command of every running
// job absent from the robot's report. The robot holds every job it has heard
// of in its map until the ack, so absence means the command was lost.
func (s *Service) resendMissingJobs(ctx context.Context, robotId string, states map[string]common.JobState) {
	running, err := s.db.SelectRunningJobs(ctx, robotId)
	if err != nil {
		klog.ErrorS(err, "failed to list running jobs", "robotId", robotId)
		return
	}
	for _, job := range running {
		if _, reported := states[job.JobId]; reported {
			continue
		}
		klog.Infof("resending deploy command for job %s to robot %s", job.JobId, robotId)
		if err = s.broker.Publish(s.topics.DeployTopic(robotId), []byte(job.DeployMsg)); err != nil {
			klog.ErrorS(err, "failed to resend deploy command", "jobId", job.JobId)
		}
	}
}

// recordDeployTarget upserts the robot's installed state from one completed
// job's stored deploy command.
func (s *Service) recordDeployTarget(ctx context.Context, robotId, jobId string) {
	job, err := s.db.GetDeployJob(ctx, jobId)
	if err != nil {
		klog.V(2).Infof("skipping deploy target update for unknown job %s", jobId)
		return
	}
	var msg common.DeployMessage
	if err = jsonutil.Unmarshal([]byte(job.DeployMsg), &msg); err != nil {
		klog.ErrorS(err, "stored deploy message is malformed", "jobId", jobId)
		return
	}
	if err = s.db.UpsertDeployTarget(ctx, robotId, msg.DeployPath, msg.Bucket, msg.ObjectName); err != nil {
		klog.ErrorS(err, "failed to record deploy target", "jobId", jobId, "robotId", robotId)
	}
}

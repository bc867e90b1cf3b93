/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package common

const (
	// DefaultBucket is the object-store bucket used when a request does not name one.
	DefaultBucket = "files"

	// DefaultVersion is the schema version recorded on new registry rows.
	DefaultVersion = "v1"

	JsonContentType = "application/json; charset=utf-8"

	// Operations substituted for <operation> in the broker topic pattern.
	OperationDeploy = "deploy"
	OperationState  = "state"
	OperationAck    = "ack"
)

// JobStatus is the lifecycle state of a deploy job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusReceived  JobStatus = "RECEIVED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether the status is final. Terminal jobs are acked by the
// cloud and evicted from the daemon's map; their rows are kept for audit.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Known reports whether the status is one of the defined lifecycle states.
func (s JobStatus) Known() bool {
	switch s {
	case JobStatusPending, JobStatusReceived, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// TaskState is the per-file outcome reported by the upload and deploy APIs.
type TaskState string

const (
	TaskStateUploaded TaskState = "UPLOADED"
	TaskStatePending  TaskState = "PENDING"
	TaskStateFailed   TaskState = "FAILED"
)

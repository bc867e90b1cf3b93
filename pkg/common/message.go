/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package common

import "fmt"

// DeployMessage is the payload published on a robot's deploy topic. The cloud
// stores the exact published bytes in the job row so a resend is verbatim.
type DeployMessage struct {
	JobId      string `json:"job_id"`
	Bucket     string `json:"bucket"`
	ObjectName string `json:"object_name"`
	DeployPath string `json:"deploy_path"`
}

// Validate checks that every field required to execute the deployment is set.
func (m *DeployMessage) Validate() error {
	if m.JobId == "" {
		return fmt.Errorf("job_id is empty")
	}
	if m.Bucket == "" {
		return fmt.Errorf("bucket is empty")
	}
	if m.ObjectName == "" {
		return fmt.Errorf("object_name is empty")
	}
	if m.DeployPath == "" {
		return fmt.Errorf("deploy_path is empty")
	}
	return nil
}

// JobState is one entry of the daemon's state snapshot, keyed by job id on the
// wire: { job_id -> {status, error_msg?} }.
type JobState struct {
	Status   JobStatus `json:"status"`
	ErrorMsg string    `json:"error_msg,omitempty"`
}

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package daemon

import (
	"fmt"
)

// UploadFileInfo names one local file to push to the cloud service, together
// with its registration attributes.
type UploadFileInfo struct {
	LocalPath    string            `json:"local_path"`
	Bucket       string            `json:"bucket"`
	ObjectName   string            `json:"object_name"`
	DeployPath   string            `json:"deploy_path"`
	RobotType    string            `json:"robot_type"`
	RobotVersion string            `json:"robot_version"`
	FileMetadata map[string]string `json:"file_metadata"`
}

// UploadJob is one batch accepted by the daemon's local upload API. The batch
// is pushed to the cloud as a single multipart request.
type UploadJob struct {
	Files []UploadFileInfo `json:"file_list"`
}

// Validate checks that the job names at least one local file.
func (j *UploadJob) Validate() error {
	if len(j.Files) == 0 {
		return fmt.Errorf("file_list is empty")
	}
	for i := range j.Files {
		if j.Files[i].LocalPath == "" {
			return fmt.Errorf("file_list[%d].local_path is empty", i)
		}
	}
	return nil
}

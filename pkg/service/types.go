/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package service

import (
	sqrl "github.com/Masterminds/squirrel"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
)

// FileInfo describes one file being uploaded or updated. ObjectName is
// optional on upload; when absent the service synthesizes one and dedup may
// return a different existing object.
type FileInfo struct {
	Bucket       string            `json:"bucket"`
	ObjectName   string            `json:"object_name"`
	RobotId      string            `json:"robot_id"`
	DeployPath   string            `json:"deploy_path"`
	RobotType    string            `json:"robot_type"`
	RobotVersion string            `json:"robot_version"`
	FileMetadata map[string]string `json:"file_metadata"`
}

// applyDefaults fills the bucket when the caller did not name one.
func (f *FileInfo) applyDefaults() {
	if f.Bucket == "" {
		f.Bucket = common.DefaultBucket
	}
}

// FileTaskResult is the per-file outcome of an upload or deploy request.
type FileTaskResult struct {
	Bucket     string           `json:"bucket"`
	ObjectName string           `json:"object_name"`
	RobotId    string           `json:"robot_id,omitempty"`
	DeployPath string           `json:"deploy_path,omitempty"`
	Filename   string           `json:"filename"`
	State      common.TaskState `json:"state"`
	ErrorMsg   string           `json:"error_msg,omitempty"`
	JobId      string           `json:"job_id,omitempty"`
}

// FileFilter narrows a registry listing. Zero-valued fields do not filter;
// every metadata pair must match.
type FileFilter struct {
	Bucket       string
	ObjectName   string
	RobotId      string
	RobotType    string
	RobotVersion string
	DeployPath   string
	Valid        *bool
	Metadata     map[string]string
}

// Query renders the filter as a SQL predicate, or nil when nothing filters.
func (f *FileFilter) Query() sqrl.Sqlizer {
	eq := sqrl.Eq{}
	if f.Bucket != "" {
		eq["bucket"] = f.Bucket
	}
	if f.ObjectName != "" {
		eq["object_name"] = f.ObjectName
	}
	if f.RobotId != "" {
		eq["robot_id"] = f.RobotId
	}
	if f.RobotType != "" {
		eq["robot_type"] = f.RobotType
	}
	if f.RobotVersion != "" {
		eq["robot_version"] = f.RobotVersion
	}
	if f.DeployPath != "" {
		eq["deploy_path"] = f.DeployPath
	}
	if f.Valid != nil {
		eq["valid"] = *f.Valid
	}
	and := sqrl.And{}
	if len(eq) > 0 {
		and = append(and, eq)
	}
	for key, value := range f.Metadata {
		and = append(and, sqrl.Expr("file_metadata->>? = ?", key, value))
	}
	if len(and) == 0 {
		return nil
	}
	return and
}

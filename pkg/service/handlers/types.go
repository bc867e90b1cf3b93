/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
)

// fileInfoList is the "file_info_list" form field of upload and deploy
// requests: one entry per attached file, in attachment order.
type fileInfoList struct {
	FileList []*service.FileInfo `json:"file_list"`
}

// deployFromStoreRequest names an already-registered file to deploy, bound
// from query parameters. DeployPath overrides the file's registered path for
// this job only.
type deployFromStoreRequest struct {
	Bucket     string `form:"bucket"`
	ObjectName string `form:"object_name" binding:"required"`
	RobotId    string `form:"robot_id"`
	DeployPath string `form:"deploy_path"`
}

// objectRef identifies one file in query parameters.
type objectRef struct {
	Bucket     string `form:"bucket"`
	ObjectName string `form:"object_name" binding:"required"`
}

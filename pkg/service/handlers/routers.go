/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
)

// InitRouters registers all cloud-service API routes with the Gin engine.
func InitRouters(e *gin.Engine, h *Handler) {
	file := e.Group("/file")
	{
		file.GET("/list", h.ListFiles)
		file.POST("/upload", h.UploadFiles)
		file.PATCH("/update", h.UpdateFile)
		file.POST("/deploy", h.DeployFiles)
		file.POST("/deploy_from_s3", h.DeployFromStore)
		file.GET("/download", h.DownloadFile)
		file.PUT("/validate", h.ValidateFile)
		file.PUT("/invalidate", h.InvalidateFile)
		file.DELETE("/delete", h.DeleteFile)
	}
	e.GET("/deploy_state/:robot_id", h.DeployState)
	e.GET("/job_state/:job_id", h.JobState)
	e.GET("/job_list/:robot_id", h.JobList)
	e.GET("/health", h.Health)
}

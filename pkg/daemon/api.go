/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitRouters registers the daemon's local API: an upload entry point for
// on-robot producers and a health probe.
func InitRouters(e *gin.Engine, d *Daemon) {
	e.POST("/upload", d.handleUpload)
	e.GET("/health", d.handleHealth)
}

// handleUpload accepts one upload batch and queues it. The push to the cloud
// happens asynchronously, so the response is 202.
func (d *Daemon) handleUpload(c *gin.Context) {
	var job UploadJob
	if err := c.ShouldBindJSON(&job); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := d.EnqueueUpload(&job); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "upload queued", "files": len(job.Files)})
}

func (d *Daemon) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OTA Daemon: Running", "robot_id": d.robotID})
}

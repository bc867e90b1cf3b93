/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
)

// DeployState handles GET /deploy_state/:robot_id, the robot's installed
// files as recorded from completed jobs.
func (h *Handler) DeployState(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return h.service.DeployTargets(c.Request.Context(), c.Param("robot_id"))
	})
}

// JobState handles GET /job_state/:job_id.
func (h *Handler) JobState(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return h.service.Job(c.Request.Context(), c.Param("job_id"))
	})
}

// JobList handles GET /job_list/:robot_id, newest first. An optional "limit"
// query parameter caps the result.
func (h *Handler) JobList(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		limit := 0
		if raw, ok := c.GetQuery("limit"); ok {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return nil, commonerrors.NewBadRequest("limit must be a non-negative integer")
			}
			limit = parsed
		}
		return h.service.Jobs(c.Request.Context(), c.Param("robot_id"), limit)
	})
}

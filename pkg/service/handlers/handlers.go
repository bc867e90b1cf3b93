/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
)

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes the handler function and processes the response/error.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch responseType := response.(type) {
	case []byte:
		c.Data(code, common.JsonContentType, responseType)
	case string:
		c.Data(code, common.JsonContentType, []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}

// Handler exposes the deployment coordinator over HTTP.
type Handler struct {
	service *service.Service
}

// NewHandler wires the HTTP layer to the coordinator.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return gin.H{"status": "OTA File Service: Running"}, nil
	})
}

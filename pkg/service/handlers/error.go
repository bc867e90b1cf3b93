/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
)

// ApiError is the unified error response: HTTP code, error code, and message.
type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Error returns the error message string.
func (err *ApiError) Error() string {
	return err.ErrorMessage
}

// BatchError carries the per-file results of a partially failed batch. The
// request as a whole is rejected, but the caller can see which files were
// fine.
type BatchError struct {
	Detail []*service.FileTaskResult `json:"detail"`
}

// Error implements the error interface.
func (err *BatchError) Error() string {
	return "one or more files failed"
}

// AbortWithApiError converts err into the standardized error format and
// aborts the request.
func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	var batch *BatchError
	if errors.As(err, &batch) {
		c.AbortWithStatusJSON(http.StatusBadRequest, batch)
		return
	}
	rsp := convertToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

// convertToErrResponse converts an error into a standardized ApiError.
func convertToErrResponse(err error) ApiError {
	var result *ApiError
	if errors.As(err, &result) {
		return *result
	}
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		switch {
		case apierrors.IsNotFound(err):
			statusErr = commonerrors.NewNotFoundWithMessage(err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			statusErr = commonerrors.NewBadRequest(err.Error())
		case apierrors.IsAlreadyExists(err):
			statusErr = commonerrors.NewAlreadyExist(err.Error())
		default:
			statusErr = commonerrors.NewInternalError(err.Error())
		}
	}
	return ApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	}
}

// handleErrors records single errors or aggregates on the gin context.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}

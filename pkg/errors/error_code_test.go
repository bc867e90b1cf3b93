/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsBadRequest(NewBadRequest("x")))
	assert.True(t, IsInternal(NewInternalError("x")))
	assert.True(t, IsAlreadyExist(NewAlreadyExist("x")))
	assert.True(t, IsStorage(NewStorageError("x")))
	assert.True(t, IsNotFound(NewNotFound("File", "files/a.txt")))
	assert.True(t, IsNotFound(NewNotFound("DeployJob", "job-1")))
	assert.True(t, IsNotFound(NewNotFoundWithMessage("gone")))

	assert.False(t, IsNotFound(NewBadRequest("x")))
	assert.False(t, IsOta(fmt.Errorf("plain error")))
	assert.False(t, IsOta(nil))
	assert.True(t, IsOta(NewInternalError("x")))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, FileNotFound, GetErrorCode(NewNotFound("File", "files/a.txt")))
	assert.Equal(t, JobNotFound, GetErrorCode(NewNotFound("DeployJob", "job-1")))
	assert.Equal(t, NotFound, GetErrorCode(NewNotFound("Robot", "robot_a")))
	assert.Equal(t, BadRequest, GetErrorCode(NewBadRequest("x")))
	assert.Equal(t, "", GetErrorCode(fmt.Errorf("plain error")))
}

func TestHttpCodes(t *testing.T) {
	assert.Equal(t, int32(http.StatusBadRequest), NewBadRequest("x").Status().Code)
	assert.Equal(t, int32(http.StatusBadRequest), NewStorageError("x").Status().Code)
	assert.Equal(t, int32(http.StatusConflict), NewAlreadyExist("x").Status().Code)
	assert.Equal(t, int32(http.StatusNotFound), NewNotFound("File", "a").Status().Code)
	assert.Equal(t, int32(http.StatusInternalServerError), NewInternalError("x").Status().Code)
}

func TestIgnoreNotFound(t *testing.T) {
	assert.NoError(t, IgnoreNotFound(nil))
	assert.NoError(t, IgnoreNotFound(NewNotFound("File", "a")))
	assert.Error(t, IgnoreNotFound(NewInternalError("x")))
}

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const OtaPrefix = "OTA."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00-99), used to distinguish errors from different business interfaces.
   00: General errors
   01: File registry errors
   02: Deploy job errors
   [yyy] Error code range (000-999)
*/

// public: 00xxx
const (
	InternalError = OtaPrefix + "00001"
	BadRequest    = OtaPrefix + "00002"
	AlreadyExist  = OtaPrefix + "00003"
	NotFound      = OtaPrefix + "00004"
	StorageError  = OtaPrefix + "00005"
)

// file registry: 01xxx
const (
	FileNotFound = OtaPrefix + "01001"
)

// deploy jobs: 02xxx
const (
	JobNotFound = OtaPrefix + "02001"
)

// IsOta returns true if the error reason carries an OTA error code.
func IsOta(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), OtaPrefix)
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsStorage(err error) bool {
	return apierrors.ReasonForError(err) == StorageError
}

func IsNotFound(err error) bool {
	switch apierrors.ReasonForError(err) {
	case NotFound, FileNotFound, JobNotFound:
		return true
	}
	return false
}

func IgnoreNotFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsOta(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewBadRequest(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  AlreadyExist,
		Message: message,
	}}
}

// NewStorageError reports an object-store or database failure. Surfaced as 400
// on single-resource endpoints, matching the API contract.
func NewStorageError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  StorageError,
		Message: message,
	}}
}

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case "File":
		return FileNotFound
	case "DeployJob":
		return JobNotFound
	default:
		return NotFound
	}
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: NotFoundErrorCode(kind),
		Details: &metav1.StatusDetails{
			Kind: kind,
			Name: name,
		},
		Message: fmt.Sprintf("%s %s not found.", kind, name),
	}}
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}}
}

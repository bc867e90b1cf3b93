/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

// ListFiles handles GET /file/list. The "file_metadata" parameter is a JSON
// object; each of its pairs becomes an AND predicate on one metadata key.
func (h *Handler) ListFiles(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		filter := &service.FileFilter{
			Bucket:       c.Query("bucket"),
			ObjectName:   c.Query("object_name"),
			RobotId:      c.Query("robot_id"),
			RobotType:    c.Query("robot_type"),
			RobotVersion: c.Query("robot_version"),
			DeployPath:   c.Query("deploy_path"),
			Metadata:     map[string]string{},
		}
		if raw, ok := c.GetQuery("valid"); ok {
			valid, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, commonerrors.NewBadRequest("valid must be a boolean")
			}
			filter.Valid = &valid
		}
		if raw, ok := c.GetQuery("file_metadata"); ok && raw != "" {
			if err := jsonutil.Unmarshal([]byte(raw), &filter.Metadata); err != nil {
				return nil, commonerrors.NewBadRequest("file_metadata is not a valid JSON object: " + err.Error())
			}
		}
		return h.service.ListFiles(c.Request.Context(), filter)
	})
}

// UploadFiles handles POST /file/upload: a multipart batch of files with a
// parallel "file_info_list" JSON field.
func (h *Handler) UploadFiles(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		infos, attachments, err := parseFileBatch(c)
		if err != nil {
			return nil, err
		}
		timestamp := time.Now().UTC()
		results := make([]*service.FileTaskResult, 0, len(infos))
		failed := false
		for i, info := range infos {
			result := h.uploadOne(c, info, attachments[i], timestamp)
			if result.State == common.TaskStateFailed {
				failed = true
			}
			results = append(results, result)
		}
		if failed {
			return nil, &BatchError{Detail: results}
		}
		return results, nil
	})
}

// uploadOne runs the upload pipeline for one attachment, folding errors into
// the per-file result.
func (h *Handler) uploadOne(c *gin.Context, info *service.FileInfo,
	attachment *multipart.FileHeader, timestamp time.Time) *service.FileTaskResult {
	result := &service.FileTaskResult{
		Bucket:     info.Bucket,
		ObjectName: info.ObjectName,
		RobotId:    info.RobotId,
		DeployPath: info.DeployPath,
		Filename:   attachment.Filename,
	}
	file, err := attachment.Open()
	if err != nil {
		result.State = common.TaskStateFailed
		result.ErrorMsg = err.Error()
		return result
	}
	defer file.Close()

	row, err := h.service.UploadFile(c.Request.Context(), info, attachment.Filename, file, timestamp, false)
	if err != nil {
		result.State = common.TaskStateFailed
		result.ErrorMsg = err.Error()
		return result
	}
	result.Bucket = row.Bucket
	result.ObjectName = row.ObjectName
	result.State = common.TaskStateUploaded
	return result
}

// UpdateFile handles PATCH /file/update: a "file_info" JSON field naming the
// object, with an optional replacement file attached as "file".
func (h *Handler) UpdateFile(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		raw := c.PostForm("file_info")
		if raw == "" {
			return nil, commonerrors.NewBadRequest("file_info is required")
		}
		var info service.FileInfo
		if err := jsonutil.Unmarshal([]byte(raw), &info); err != nil {
			return nil, commonerrors.NewBadRequest("file_info is not valid JSON: " + err.Error())
		}
		if info.ObjectName == "" {
			return nil, commonerrors.NewBadRequest("object_name is required")
		}
		timestamp := time.Now().UTC()

		attachment, err := c.FormFile("file")
		if err != nil {
			// No replacement content: metadata-only update.
			return h.service.UpdateFileInfo(c.Request.Context(), &info, "", timestamp)
		}
		file, err := attachment.Open()
		if err != nil {
			return nil, commonerrors.NewBadRequest(err.Error())
		}
		defer file.Close()
		return h.service.UploadFile(c.Request.Context(), &info, attachment.Filename, file, timestamp, true)
	})
}

// DeployFiles handles POST /file/deploy: upload a batch and create a deploy
// job per file.
func (h *Handler) DeployFiles(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		infos, attachments, err := parseFileBatch(c)
		if err != nil {
			return nil, err
		}
		timestamp := time.Now().UTC()
		results := make([]*service.FileTaskResult, 0, len(infos))
		failed := false
		for i, info := range infos {
			result := h.deployOne(c, info, attachments[i], timestamp)
			if result.State == common.TaskStateFailed {
				failed = true
			}
			results = append(results, result)
		}
		if failed {
			return nil, &BatchError{Detail: results}
		}
		return results, nil
	})
}

func (h *Handler) deployOne(c *gin.Context, info *service.FileInfo,
	attachment *multipart.FileHeader, timestamp time.Time) *service.FileTaskResult {
	file, err := attachment.Open()
	if err != nil {
		return &service.FileTaskResult{
			Bucket:     info.Bucket,
			ObjectName: info.ObjectName,
			RobotId:    info.RobotId,
			DeployPath: info.DeployPath,
			Filename:   attachment.Filename,
			State:      common.TaskStateFailed,
			ErrorMsg:   err.Error(),
		}
	}
	defer file.Close()
	return h.service.UploadAndDeploy(c.Request.Context(), info, attachment.Filename, file, timestamp)
}

// DeployFromStore handles POST /file/deploy_from_s3: deploy a file that is
// already registered.
func (h *Handler) DeployFromStore(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var req deployFromStoreRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			return nil, commonerrors.NewBadRequest(err.Error())
		}
		jobId, err := h.service.DeployFromStore(c.Request.Context(),
			req.Bucket, req.ObjectName, req.RobotId, req.DeployPath)
		if err != nil {
			return nil, err
		}
		return gin.H{"job_id": jobId, "status": common.JobStatusPending}, nil
	})
}

// DownloadFile handles GET /file/download, serving the object as an
// attachment.
func (h *Handler) DownloadFile(c *gin.Context) {
	var ref objectRef
	if err := c.ShouldBindQuery(&ref); err != nil {
		AbortWithApiError(c, commonerrors.NewBadRequest(err.Error()))
		return
	}
	localPath, fileName, cleanup, err := h.service.DownloadFile(c.Request.Context(), ref.Bucket, ref.ObjectName)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	defer cleanup()
	c.FileAttachment(localPath, fileName)
}

// ValidateFile handles PUT /file/validate.
func (h *Handler) ValidateFile(c *gin.Context) {
	h.setValid(c, true)
}

// InvalidateFile handles PUT /file/invalidate.
func (h *Handler) InvalidateFile(c *gin.Context) {
	h.setValid(c, false)
}

func (h *Handler) setValid(c *gin.Context, valid bool) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var ref objectRef
		if err := c.ShouldBindQuery(&ref); err != nil {
			return nil, commonerrors.NewBadRequest(err.Error())
		}
		return h.service.SetFileValid(c.Request.Context(), ref.Bucket, ref.ObjectName, valid)
	})
}

// DeleteFile handles DELETE /file/delete.
func (h *Handler) DeleteFile(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var ref objectRef
		if err := c.ShouldBindQuery(&ref); err != nil {
			return nil, commonerrors.NewBadRequest(err.Error())
		}
		if err := h.service.DeleteFile(c.Request.Context(), ref.Bucket, ref.ObjectName); err != nil {
			return nil, err
		}
		return gin.H{"message": "deleted " + ref.ObjectName}, nil
	})
}

// parseFileBatch reads the "file_info_list" field and the attached "files" of
// a multipart batch, pairing them by position.
func parseFileBatch(c *gin.Context) ([]*service.FileInfo, []*multipart.FileHeader, error) {
	raw := c.PostForm("file_info_list")
	if raw == "" {
		return nil, nil, commonerrors.NewBadRequest("file_info_list is required")
	}
	var list fileInfoList
	if err := jsonutil.Unmarshal([]byte(raw), &list); err != nil {
		return nil, nil, commonerrors.NewBadRequest("file_info_list is not valid JSON: " + err.Error())
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, commonerrors.NewBadRequest(err.Error())
	}
	attachments := form.File["files"]
	if len(attachments) != len(list.FileList) {
		return nil, nil, commonerrors.NewBadRequest("number of files and file info do not match")
	}
	if len(attachments) == 0 {
		return nil, nil, commonerrors.NewBadRequest("no files attached")
	}
	return list.FileList, attachments, nil
}

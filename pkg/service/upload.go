/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	dbclient "github.com/nvidia-isaac/ota-file-service/pkg/database/client"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

// hashBlockSize is the read granularity when digesting an upload.
const hashBlockSize = 64 * 1024

// UploadFile runs the upload pipeline for one file:
//
//  1. reject a client-named object that already exists, unless updating
//  2. digest the content
//  3. look for an identical prior upload and reuse its object instead
//  4. store the bytes
//  5. record the registry row
//
// The returned row carries the object name actually used, which differs from
// the requested one when dedup found a match.
func (s *Service) UploadFile(ctx context.Context, info *FileInfo, filename string,
	file io.ReadSeeker, timestamp time.Time, update bool) (*dbclient.File, error) {
	info.applyDefaults()
	userNamed := info.ObjectName != ""
	objectName := info.ObjectName
	if !userNamed {
		objectName = synthesizeObjectName(filename)
	}

	existing, err := s.db.GetFile(ctx, info.Bucket, objectName)
	if err != nil && !commonerrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && !update {
		return nil, commonerrors.NewAlreadyExist(
			fmt.Sprintf("object %s already exists in bucket %s", objectName, info.Bucket))
	}
	if existing == nil && update {
		return nil, commonerrors.NewBadRequest(
			fmt.Sprintf("the file %s/%s does not exist", info.Bucket, objectName))
	}

	sha, err := digest(file)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}

	if match, err := s.findIdenticalUpload(ctx, info, objectName, sha, userNamed); err != nil {
		return nil, err
	} else if match != nil {
		klog.Infof("dedup hit: %s/%s already holds identical content, skipping upload of %s",
			match.Bucket, match.ObjectName, filename)
		return match, nil
	}

	if err = s.store.Upload(ctx, info.Bucket, objectName, file); err != nil {
		return nil, commonerrors.NewStorageError(err.Error())
	}

	if update {
		valid := true
		row, err := s.db.UpdateFile(ctx, info.Bucket, objectName, &dbclient.FileUpdate{
			RobotId:      &info.RobotId,
			RobotType:    &info.RobotType,
			RobotVersion: &info.RobotVersion,
			DeployPath:   &info.DeployPath,
			FileMetadata: dbclient.Metadata(info.FileMetadata),
			FileName:     &filename,
			Sha256:       &sha,
			Valid:        &valid,
			Timestamp:    timestamp,
		})
		if commonerrors.IsNotFound(err) {
			return nil, commonerrors.NewBadRequest(
				fmt.Sprintf("the file %s/%s does not exist", info.Bucket, objectName))
		}
		return row, err
	}
	row := &dbclient.File{
		Bucket:       info.Bucket,
		ObjectName:   objectName,
		FileName:     filename,
		Timestamp:    timestamp,
		RobotId:      info.RobotId,
		RobotType:    info.RobotType,
		RobotVersion: info.RobotVersion,
		DeployPath:   info.DeployPath,
		Sha256:       sha,
		FileMetadata: dbclient.Metadata(info.FileMetadata),
		Valid:        true,
		Version:      common.DefaultVersion,
	}
	if err = s.db.InsertFile(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateFileInfo applies a metadata-only update, leaving the stored bytes and
// their digest untouched.
func (s *Service) UpdateFileInfo(ctx context.Context, info *FileInfo, filename string, timestamp time.Time) (*dbclient.File, error) {
	info.applyDefaults()
	if info.ObjectName == "" {
		return nil, commonerrors.NewBadRequest("object_name is required for update")
	}
	update := &dbclient.FileUpdate{
		Timestamp: timestamp,
	}
	if info.RobotId != "" {
		update.RobotId = &info.RobotId
	}
	if info.RobotType != "" {
		update.RobotType = &info.RobotType
	}
	if info.RobotVersion != "" {
		update.RobotVersion = &info.RobotVersion
	}
	if info.DeployPath != "" {
		update.DeployPath = &info.DeployPath
	}
	if info.FileMetadata != nil {
		update.FileMetadata = dbclient.Metadata(info.FileMetadata)
	}
	if filename != "" {
		update.FileName = &filename
	}
	row, err := s.db.UpdateFile(ctx, info.Bucket, info.ObjectName, update)
	if commonerrors.IsNotFound(err) {
		return nil, commonerrors.NewBadRequest(
			fmt.Sprintf("the file %s/%s does not exist", info.Bucket, info.ObjectName))
	}
	return row, err
}

// findIdenticalUpload returns a prior upload whose content and registration
// attributes are all identical to the incoming one, or nil. When the client
// named the object itself, only that exact object can satisfy dedup.
func (s *Service) findIdenticalUpload(ctx context.Context, info *FileInfo,
	objectName, sha string, userNamed bool) (*dbclient.File, error) {
	query := sqrl.And{
		sqrl.Eq{
			"bucket":        info.Bucket,
			"sha256":        sha,
			"robot_id":      info.RobotId,
			"deploy_path":   info.DeployPath,
			"robot_type":    info.RobotType,
			"robot_version": info.RobotVersion,
		},
		sqrl.Expr("file_metadata = ?::jsonb", jsonutil.CanonicalMetadata(info.FileMetadata)),
	}
	if userNamed {
		query = append(query, sqrl.Eq{"object_name": objectName})
	}
	files, err := s.db.SelectFiles(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// synthesizeObjectName builds a unique object name, keeping the original
// filename as a readable prefix when there is one.
func synthesizeObjectName(filename string) string {
	id := uuid.NewString()
	if filename == "" {
		return id
	}
	return fmt.Sprintf("%s_%s", filename, id)
}

// digest hashes the whole stream in fixed-size blocks and rewinds it so the
// same reader can be uploaded afterwards.
func digest(file io.ReadSeeker) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, file, buf); err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func defaultBucket(bucket string) string {
	if bucket == "" {
		return common.DefaultBucket
	}
	return bucket
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

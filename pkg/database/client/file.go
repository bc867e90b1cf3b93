/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"

	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
)

// SelectFiles returns the file rows matching the given predicate, newest
// first. A nil query returns every row.
func (c *Client) SelectFiles(ctx context.Context, query sqrl.Sqlizer) ([]*File, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	builder := sqrl.Select("*").From(TFiles).
		OrderBy("timestamp DESC").
		PlaceholderFormat(sqrl.Dollar)
	if query != nil {
		builder = builder.Where(query)
	}
	queryStr, args, err := builder.ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	var files []*File
	if err = db.SelectContext(ctx, &files, queryStr, args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return files, nil
}

// GetFile returns the file row keyed by (bucket, objectName), or a not-found
// error when no such row exists.
func (c *Client) GetFile(ctx context.Context, bucket, objectName string) (*File, error) {
	files, err := c.SelectFiles(ctx, sqrl.Eq{"bucket": bucket, "object_name": objectName})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, commonerrors.NewNotFound("File", bucket+"/"+objectName)
	}
	return files[0], nil
}

// InsertFile stores a new file row.
func (c *Client) InsertFile(ctx context.Context, file *File) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if file == nil {
		return commonerrors.NewBadRequest("the file row is empty")
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s
		(bucket, object_name, file_name, timestamp, robot_id, robot_type, robot_version,
		 deploy_path, sha256, file_metadata, valid, version)
		VALUES (:bucket, :object_name, :file_name, :timestamp, :robot_id, :robot_type,
		 :robot_version, :deploy_path, :sha256, :file_metadata, :valid, :version)`, TFiles)
	if _, err = db.NamedExecContext(ctx, query, file); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

// UpdateFile applies a partial update to the row keyed by (bucket,
// objectName) and returns the updated row. Nil fields in the update are left
// untouched.
func (c *Client) UpdateFile(ctx context.Context, bucket, objectName string, update *FileUpdate) (*File, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	if update == nil {
		return nil, commonerrors.NewBadRequest("the file update is empty")
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	builder := sqrl.Update(TFiles).
		Set("timestamp", update.Timestamp).
		Where(sqrl.Eq{"bucket": bucket, "object_name": objectName}).
		PlaceholderFormat(sqrl.Dollar)
	if update.RobotId != nil {
		builder = builder.Set("robot_id", *update.RobotId)
	}
	if update.RobotType != nil {
		builder = builder.Set("robot_type", *update.RobotType)
	}
	if update.RobotVersion != nil {
		builder = builder.Set("robot_version", *update.RobotVersion)
	}
	if update.DeployPath != nil {
		builder = builder.Set("deploy_path", *update.DeployPath)
	}
	if update.FileMetadata != nil {
		builder = builder.Set("file_metadata", update.FileMetadata)
	}
	if update.FileName != nil {
		builder = builder.Set("file_name", *update.FileName)
	}
	if update.Sha256 != nil {
		builder = builder.Set("sha256", *update.Sha256)
	}
	if update.Valid != nil {
		builder = builder.Set("valid", *update.Valid)
	}
	queryStr, args, err := builder.ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	result, err := db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, commonerrors.NewNotFound("File", bucket+"/"+objectName)
	}
	return c.GetFile(ctx, bucket, objectName)
}

// DeleteFile removes the row keyed by (bucket, objectName). The schema
// cascade removes any deploy_target rows that pointed at it.
func (c *Client) DeleteFile(ctx context.Context, bucket, objectName string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	queryStr, args, err := sqrl.Delete(TFiles).
		Where(sqrl.Eq{"bucket": bucket, "object_name": objectName}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	result, err := db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return commonerrors.NewNotFound("File", bucket+"/"+objectName)
	}
	return nil
}

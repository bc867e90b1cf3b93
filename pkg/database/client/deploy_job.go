/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
)

// InsertDeployJob records a new job in PENDING state. The deploy message is
// stored verbatim so a resend publishes exactly the original payload.
func (c *Client) InsertDeployJob(ctx context.Context, jobId, robotId, deployPath, deployMsg string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (job_id, status, robot_id, deploy_path, deploy_msg, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`, TDeployJobs)
	_, err = db.ExecContext(ctx, query, jobId, common.JobStatusPending, robotId, deployPath, deployMsg, time.Now().UTC())
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

// UpdateDeployJobStatus sets the status of one job. An empty errorMsg keeps
// whatever error message the row already carries, so repeated terminal
// reports do not erase the first failure reason. Unknown job ids map to a
// not-found error.
func (c *Client) UpdateDeployJobStatus(ctx context.Context, jobId string, status common.JobStatus, errorMsg string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`UPDATE %s SET status = $1, error_msg = COALESCE($2, error_msg)
		WHERE job_id = $3`, TDeployJobs)
	var msg *string
	if errorMsg != "" {
		msg = &errorMsg
	}
	result, err := db.ExecContext(ctx, query, status, msg, jobId)
	if err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return commonerrors.NewNotFound("DeployJob", jobId)
	}
	return nil
}

// SelectRunningJobs returns the non-terminal jobs of one robot, oldest first,
// so the resend pass replays them in original order.
func (c *Client) SelectRunningJobs(ctx context.Context, robotId string) ([]*DeployJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	queryStr, args, err := sqrl.Select("*").From(TDeployJobs).
		Where(sqrl.And{
			sqrl.Eq{"robot_id": robotId},
			sqrl.NotEq{"status": []common.JobStatus{common.JobStatusCompleted, common.JobStatusFailed}},
		}).
		OrderBy("timestamp ASC").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	var jobs []*DeployJob
	if err = db.SelectContext(ctx, &jobs, queryStr, args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return jobs, nil
}

// SelectJobs returns the job history of one robot, newest first. A limit of
// zero or less returns everything.
func (c *Client) SelectJobs(ctx context.Context, robotId string, limit int) ([]*DeployJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	builder := sqrl.Select("*").From(TDeployJobs).
		Where(sqrl.Eq{"robot_id": robotId}).
		OrderBy("timestamp DESC").
		PlaceholderFormat(sqrl.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	queryStr, args, err := builder.ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	var jobs []*DeployJob
	if err = db.SelectContext(ctx, &jobs, queryStr, args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return jobs, nil
}

// GetDeployJob returns one job by id.
func (c *Client) GetDeployJob(ctx context.Context, jobId string) (*DeployJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	queryStr, args, err := sqrl.Select("*").From(TDeployJobs).
		Where(sqrl.Eq{"job_id": jobId}).
		Limit(1).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	var jobs []*DeployJob
	if err = db.SelectContext(ctx, &jobs, queryStr, args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if len(jobs) == 0 {
		return nil, commonerrors.NewNotFound("DeployJob", jobId)
	}
	return jobs[0], nil
}

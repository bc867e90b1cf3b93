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

// UpsertDeployTarget records that the given artifact is now installed at
// (robotId, deployPath). A later deployment to the same path on the same
// robot overwrites the previous record.
func (c *Client) UpsertDeployTarget(ctx context.Context, robotId, deployPath, bucket, objectName string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (robot_id, deploy_path, bucket, object_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (robot_id, deploy_path)
		DO UPDATE SET bucket = EXCLUDED.bucket, object_name = EXCLUDED.object_name`, TDeployTarget)
	if _, err = db.ExecContext(ctx, query, robotId, deployPath, bucket, objectName); err != nil {
		return commonerrors.NewInternalError(err.Error())
	}
	return nil
}

// SelectDeployTargets returns the current installed state of one robot.
func (c *Client) SelectDeployTargets(ctx context.Context, robotId string) ([]*DeployTarget, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	queryStr, args, err := sqrl.Select("*").From(TDeployTarget).
		Where(sqrl.Eq{"robot_id": robotId}).
		OrderBy("deploy_path ASC").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	var targets []*DeployTarget
	if err = db.SelectContext(ctx, &targets, queryStr, args...); err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	return targets, nil
}

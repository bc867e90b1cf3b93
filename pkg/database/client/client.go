/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	"github.com/nvidia-isaac/ota-file-service/pkg/database/utils"
	commonerrors "github.com/nvidia-isaac/ota-file-service/pkg/errors"
)

// Interface is the registry surface consumed by the cloud controller and the
// HTTP handlers.
type Interface interface {
	Migrate() error
	Close()

	SelectFiles(ctx context.Context, query sqrl.Sqlizer) ([]*File, error)
	GetFile(ctx context.Context, bucket, objectName string) (*File, error)
	InsertFile(ctx context.Context, file *File) error
	UpdateFile(ctx context.Context, bucket, objectName string, update *FileUpdate) (*File, error)
	DeleteFile(ctx context.Context, bucket, objectName string) error

	UpsertDeployTarget(ctx context.Context, robotId, deployPath, bucket, objectName string) error
	SelectDeployTargets(ctx context.Context, robotId string) ([]*DeployTarget, error)

	InsertDeployJob(ctx context.Context, jobId, robotId, deployPath, deployMsg string) error
	UpdateDeployJobStatus(ctx context.Context, jobId string, status common.JobStatus, errorMsg string) error
	SelectRunningJobs(ctx context.Context, robotId string) ([]*DeployJob, error)
	SelectJobs(ctx context.Context, robotId string, limit int) ([]*DeployJob, error)
	GetDeployJob(ctx context.Context, jobId string) (*DeployJob, error)
}

// Client manages the sqlx connection used for queries and the gorm connection
// used for schema migration.
type Client struct {
	db   *sqlx.DB
	gorm *gorm.DB
	*utils.DBConfig
}

var _ Interface = (*Client)(nil)

// NewClient validates the configuration, connects both sqlx and gorm, and
// pings the database.
func NewClient(cfg *utils.DBConfig) (*Client, error) {
	if err := checkParams(cfg); err != nil {
		return nil, err
	}
	db, err := utils.Connect(cfg, utils.PgDriver)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db %s, err: %v", cfg.DBName, err)
	}
	gormDb, err := utils.ConnectGorm(cfg)
	if err != nil {
		return nil, err
	}
	klog.Infof("init db-client successfully! conn-timeout: %d(s), request-timeout: %v",
		cfg.ConnectTimeout, cfg.RequestTimeout)
	return &Client{db: db, gorm: gormDb, DBConfig: cfg}, nil
}

// Migrate creates or updates the three registry tables, including the
// composite cascade foreign key from deploy_target to files.
func (c *Client) Migrate() error {
	if c == nil || c.gorm == nil {
		return commonerrors.NewInternalError("The client of db has not been initialized")
	}
	return c.gorm.AutoMigrate(&File{}, &DeployTarget{}, &DeployJob{})
}

// Close performs the Close operation.
func (c *Client) Close() {
	if c == nil || c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

// getDB retrieves DB for internal use.
func (c *Client) getDB() (*sqlx.DB, error) {
	if c == nil || c.db == nil {
		return nil, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// requestContext applies the configured request timeout, if any.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.DBConfig != nil && c.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.RequestTimeout)
	}
	return ctx, func() {}
}

// checkParams checks Params and returns the result.
func checkParams(cfg *utils.DBConfig) error {
	var errs []error
	if cfg == nil {
		return fmt.Errorf("the db config is empty")
	}
	if cfg.DBName == "" {
		errs = append(errs, fmt.Errorf("dbname not found"))
	}
	if cfg.Username == "" {
		errs = append(errs, fmt.Errorf("username not found"))
	}
	if cfg.Password == "" {
		errs = append(errs, fmt.Errorf("password not found"))
	}
	if cfg.Host == "" {
		errs = append(errs, fmt.Errorf("host not found"))
	}
	if cfg.SSLMode == "" {
		errs = append(errs, fmt.Errorf("ssl_mode not found"))
	}
	if cfg.Port == 0 {
		errs = append(errs, fmt.Errorf("port not found"))
	}
	return utilerrors.NewAggregate(errs)
}

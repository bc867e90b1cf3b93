/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
)

const (
	// TFiles is the artifact registry table.
	TFiles = "files"
	// TDeployTarget records which artifact is installed at which path on which robot.
	TDeployTarget = "deploy_target"
	// TDeployJobs is the deploy job registry table.
	TDeployJobs = "deploy_jobs"
)

// Metadata is a small string-to-string document stored as JSONB. It marshals
// with sorted keys, so the stored form is canonical and usable for
// fingerprint equality.
type Metadata map[string]string

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// File is one artifact row, keyed by (bucket, object_name). The sha256 always
// matches the bytes currently stored under that key in the object store.
type File struct {
	Bucket       string    `db:"bucket" gorm:"column:bucket;primaryKey" json:"bucket"`
	ObjectName   string    `db:"object_name" gorm:"column:object_name;primaryKey" json:"object_name"`
	FileName     string    `db:"file_name" gorm:"column:file_name" json:"file_name"`
	Timestamp    time.Time `db:"timestamp" gorm:"column:timestamp;type:timestamptz" json:"timestamp"`
	RobotId      string    `db:"robot_id" gorm:"column:robot_id" json:"robot_id"`
	RobotType    string    `db:"robot_type" gorm:"column:robot_type" json:"robot_type"`
	RobotVersion string    `db:"robot_version" gorm:"column:robot_version" json:"robot_version"`
	DeployPath   string    `db:"deploy_path" gorm:"column:deploy_path" json:"deploy_path"`
	Sha256       string    `db:"sha256" gorm:"column:sha256" json:"sha256"`
	FileMetadata Metadata  `db:"file_metadata" gorm:"column:file_metadata;type:jsonb" json:"file_metadata"`
	Valid        bool      `db:"valid" gorm:"column:valid" json:"valid"`
	Version      string    `db:"version" gorm:"column:version;default:v1" json:"version"`

	// Schema-level cascade: deleting a file removes its deploy_target rows.
	DeployTargets []DeployTarget `db:"-" json:"-" gorm:"foreignKey:Bucket,ObjectName;references:Bucket,ObjectName;constraint:OnDelete:CASCADE"`
}

// TableName implements the gorm table-name convention.
func (File) TableName() string { return TFiles }

// DeployTarget is the authoritative "this artifact is installed at this path
// on this robot" record, keyed by (robot_id, deploy_path).
type DeployTarget struct {
	RobotId    string `db:"robot_id" gorm:"column:robot_id;primaryKey" json:"robot_id"`
	DeployPath string `db:"deploy_path" gorm:"column:deploy_path;primaryKey" json:"deploy_path"`
	Bucket     string `db:"bucket" gorm:"column:bucket" json:"bucket"`
	ObjectName string `db:"object_name" gorm:"column:object_name" json:"object_name"`
	Version    string `db:"version" gorm:"column:version;default:v1" json:"version"`
}

func (DeployTarget) TableName() string { return TDeployTarget }

// DeployJob tracks one deployment through its lifecycle. DeployMsg preserves
// the exact payload published on the deploy topic so a resend is verbatim.
// Rows persist after termination for audit.
type DeployJob struct {
	JobId      string           `db:"job_id" gorm:"column:job_id;primaryKey" json:"job_id"`
	Status     common.JobStatus `db:"status" gorm:"column:status" json:"status"`
	RobotId    string           `db:"robot_id" gorm:"column:robot_id" json:"robot_id"`
	DeployPath string           `db:"deploy_path" gorm:"column:deploy_path" json:"deploy_path"`
	DeployMsg  string           `db:"deploy_msg" gorm:"column:deploy_msg" json:"deploy_msg"`
	Timestamp  time.Time        `db:"timestamp" gorm:"column:timestamp;type:timestamptz" json:"timestamp"`
	ErrorMsg   *string          `db:"error_msg" gorm:"column:error_msg" json:"error_msg,omitempty"`
}

func (DeployJob) TableName() string { return TDeployJobs }

// FileUpdate carries a partial update for a file row. Nil fields are left
// unchanged; the timestamp is always bumped.
type FileUpdate struct {
	RobotId      *string
	RobotType    *string
	RobotVersion *string
	DeployPath   *string
	FileMetadata Metadata
	FileName     *string
	Sha256       *string
	Valid        *bool
	Timestamp    time.Time
}

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"k8s.io/klog/v2"
)

const (
	DefaultTimeout = 180

	partSize           = 100 * 1024 * 1024  // 100MB per part
	largeFileThreshold = 1024 * 1024 * 1024 // Files larger than 1GB use concurrent download
)

// Client wraps the AWS S3 client with the behavior the deployment pipeline
// needs: bucket bootstrap, streaming upload, and download to an exact path.
type Client struct {
	*Config
	s3Client *s3.Client
}

var _ Interface = (*Client)(nil)

// NewClient creates a Client using system-wide settings.
func NewClient(ctx context.Context) (Interface, error) {
	config, err := NewConfig()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(ctx, config)
}

// NewClientFromConfig creates a Client from an explicit configuration.
func NewClientFromConfig(ctx context.Context, config *Config) (Interface, error) {
	s3Client := s3.NewFromConfig(config.Config, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	cli := &Client{
		Config:   config,
		s3Client: s3Client,
	}
	klog.Infof("init s3 client successfully, endpoint: %s", config.Endpoint)
	return cli, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	timeoutCtx, cancel := WithOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	_, err := c.s3Client.HeadBucket(timeoutCtx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}
	if _, err = c.s3Client.CreateBucket(timeoutCtx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return fmt.Errorf("failed to create bucket %s, err: %v", bucket, err)
	}
	klog.Infof("created bucket %s successfully", bucket)
	return nil
}

// Upload streams body into bucket/key. Large bodies are split into parts by
// the upload manager.
func (c *Client) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	if bucket == "" || key == "" {
		return fmt.Errorf("the bucket or object key is empty")
	}
	uploader := manager.NewUploader(c.s3Client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}

// Download fetches bucket/key into the exact local path. It chooses between a
// simple download for small objects and a concurrent download for large ones.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	head, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	if head.ContentLength != nil && *head.ContentLength >= largeFileThreshold {
		return c.downloadLargeFile(ctx, bucket, key, localPath)
	}
	return c.downloadSmallFile(ctx, bucket, key, localPath)
}

// downloadSmallFile performs a single-request download.
func (c *Client) downloadSmallFile(ctx context.Context, bucket, key, localPath string) error {
	resp, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err = io.Copy(file, resp.Body); err != nil {
		os.Remove(localPath)
		return err
	}
	return nil
}

// downloadLargeFile performs a concurrent multipart download.
func (c *Client) downloadLargeFile(ctx context.Context, bucket, key, localPath string) error {
	downloader := manager.NewDownloader(c.s3Client, func(d *manager.Downloader) {
		d.PartSize = partSize
		d.Concurrency = 5
	})
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err = downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		os.Remove(localPath)
		return err
	}
	return nil
}

// Delete removes bucket/key from the store.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	if bucket == "" || key == "" {
		return fmt.Errorf("the bucket or object key is empty")
	}
	timeoutCtx, cancel := WithOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	_, err := c.s3Client.DeleteObject(timeoutCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// WithOptionalTimeout add optional timeout to context.
func WithOptionalTimeout(parent context.Context, timeout int64) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, time.Duration(timeout)*time.Second)
	}
	return parent, func() {}
}

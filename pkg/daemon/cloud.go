/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package daemon

import (
	"context"
	"fmt"
	"io"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvidia-isaac/ota-file-service/pkg/service"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/httpclient"
	"github.com/nvidia-isaac/ota-file-service/pkg/utils/jsonutil"
)

const (
	healthTimeout = 3 * time.Second
	uploadTimeout = 60 * time.Second
)

// CloudClient is the daemon's view of the cloud service's HTTP API.
type CloudClient interface {
	Health(ctx context.Context) error
	UploadFiles(ctx context.Context, fields map[string]string, files []httpclient.FilePart) error
}

// cloudClient talks to the cloud service over HTTP. Health probes use a short
// timeout so an unreachable cloud is detected quickly; uploads get a long one.
type cloudClient struct {
	baseURL      string
	healthClient *httpclient.Client
	uploadClient *httpclient.Client
}

// NewCloudClient builds a CloudClient for the given base URL.
func NewCloudClient(baseURL string) CloudClient {
	return &cloudClient{
		baseURL:      baseURL,
		healthClient: httpclient.NewClient(healthTimeout),
		uploadClient: httpclient.NewClient(uploadTimeout),
	}
}

// Health probes the cloud service's health endpoint.
func (c *cloudClient) Health(ctx context.Context) error {
	result, err := c.healthClient.Get(ctx, c.baseURL+"/health")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("cloud service is unhealthy, status %d", result.StatusCode)
	}
	return nil
}

// UploadFiles pushes one multipart batch to the cloud's upload endpoint.
func (c *cloudClient) UploadFiles(ctx context.Context, fields map[string]string, files []httpclient.FilePart) error {
	result, err := c.uploadClient.PostMultipart(ctx, c.baseURL+"/file/upload", fields, files)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("upload rejected with status %d: %s", result.StatusCode, string(result.Body))
	}
	return nil
}

// buildUploadForm renders the multipart fields of one upload batch. The file
// readers are supplied by the caller in the same order as the info list.
func buildUploadForm(infos []*service.FileInfo) (map[string]string, error) {
	payload := jsonutil.MarshalSilently(map[string]interface{}{"file_list": infos})
	if payload == nil {
		return nil, fmt.Errorf("failed to marshal file info list")
	}
	return map[string]string{"file_info_list": string(payload)}, nil
}

// logCloseError is a defer helper for readers feeding multipart parts.
func logCloseError(closer io.Closer, path string) {
	if err := closer.Close(); err != nil {
		klog.ErrorS(err, "failed to close file", "path", path)
	}
}

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"io"
)

// Interface is the object-store surface used by the cloud service and the
// robot daemon. Buckets are passed per call because every upload request may
// name its own bucket.
type Interface interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
	Download(ctx context.Context, bucket, key, localPath string) error
	Delete(ctx context.Context, bucket, key string) error
}

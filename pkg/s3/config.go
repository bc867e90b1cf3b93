/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	commonconfig "github.com/nvidia-isaac/ota-file-service/pkg/config"
)

type Config struct {
	aws.Config
	Endpoint string
}

// NewConfig creates and returns a new object-store configuration using
// system-wide settings.
func NewConfig() (*Config, error) {
	return newConfigFromCredentials(
		commonconfig.GetS3AccessKey(),
		commonconfig.GetS3SecretKey(),
		commonconfig.GetS3Endpoint(),
		commonconfig.GetS3Region())
}

// newConfigFromCredentials creates a configuration from the provided
// credentials and endpoint.
func newConfigFromCredentials(ak, sk, endpoint, region string) (*Config, error) {
	if ak == "" {
		return nil, fmt.Errorf("the s3 AccessKey is empty")
	}
	if sk == "" {
		return nil, fmt.Errorf("the s3 SecretKey is empty")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("the s3 endpoint is empty")
	}

	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     ak,
			SecretAccessKey: sk,
			Source:          "StaticCredentials",
		}, nil
	})

	// Self-hosted stores commonly run with self-signed certificates.
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credProvider),
		config.WithHTTPClient(httpClient),
		config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: endpoint,
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Config{
		Config:   cfg,
		Endpoint: endpoint,
	}, nil
}

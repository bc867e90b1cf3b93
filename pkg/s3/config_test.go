/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromCredentials(t *testing.T) {
	tests := []struct {
		name     string
		ak       string
		sk       string
		endpoint string
		wantErr  string
	}{
		{
			name:    "missing access key",
			sk:      "secret",
			wantErr: "AccessKey is empty",
		},
		{
			name:    "missing secret key",
			ak:      "access",
			wantErr: "SecretKey is empty",
		},
		{
			name:    "missing endpoint",
			ak:      "access",
			sk:      "secret",
			wantErr: "endpoint is empty",
		},
		{
			name:     "complete",
			ak:       "access",
			sk:       "secret",
			endpoint: "http://localhost:9000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Keep the ambient AWS_CA_BUNDLE out of LoadDefaultConfig so
			// the test behaves the same in any environment.
			t.Setenv("AWS_CA_BUNDLE", "")
			cfg, err := newConfigFromCredentials(tt.ak, tt.sk, tt.endpoint, "us-east-1")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, cfg.Endpoint)
			creds, err := cfg.Credentials.Retrieve(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.ak, creds.AccessKeyID)
			assert.Equal(t, tt.sk, creds.SecretAccessKey)
		})
	}
}

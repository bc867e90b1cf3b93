/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         1883,
		Transport:    "tcp",
		TopicPattern: "ota/<robot_id>/<operation>",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "default pattern",
			mutate: func(c *Config) {},
		},
		{
			name:   "custom pattern with both placeholders",
			mutate: func(c *Config) { c.TopicPattern = "fleet/<operation>/<robot_id>" },
		},
		{
			name:    "missing robot placeholder",
			mutate:  func(c *Config) { c.TopicPattern = "ota/robots/<operation>" },
			wantErr: true,
		},
		{
			name:    "missing operation placeholder",
			mutate:  func(c *Config) { c.TopicPattern = "ota/<robot_id>/deploy" },
			wantErr: true,
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Host = "" },
			wantErr: true,
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.Transport = "udp" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerURL())

	cfg.Transport = "ws"
	cfg.Port = 9001
	cfg.WSPath = "mqtt"
	assert.Equal(t, "ws://localhost:9001/mqtt", cfg.BrokerURL())
}

func TestTopicGeneration(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "ota/robot_a/deploy", cfg.DeployTopic("robot_a"))
	assert.Equal(t, "ota/robot_a/state", cfg.StateTopic("robot_a"))
	assert.Equal(t, "ota/robot_a/ack", cfg.AckTopic("robot_a"))
	assert.Equal(t, "ota/+/state", cfg.StateWildcard())
}

func TestMatchStateTopic(t *testing.T) {
	cfg := testConfig()

	robotId, ok := cfg.MatchStateTopic("ota/robot_a/state")
	require.True(t, ok)
	assert.Equal(t, "robot_a", robotId)

	_, ok = cfg.MatchStateTopic("ota/robot_a/deploy")
	assert.False(t, ok)

	_, ok = cfg.MatchStateTopic("other/robot_a/state")
	assert.False(t, ok)
}

// Topics generated for a robot must be recoverable from the same pattern,
// whatever the pattern's shape.
func TestTopicBijectivity(t *testing.T) {
	patterns := []string{
		"ota/<robot_id>/<operation>",
		"fleet/<operation>/<robot_id>",
		"site-1/ota/<robot_id>/v2/<operation>",
	}
	for _, pattern := range patterns {
		cfg := testConfig()
		cfg.TopicPattern = pattern
		require.NoError(t, cfg.Validate())

		topic := cfg.StateTopic("robot_b")
		robotId, ok := cfg.MatchStateTopic(topic)
		require.True(t, ok, "pattern %q", pattern)
		assert.Equal(t, "robot_b", robotId, "pattern %q", pattern)
	}
}

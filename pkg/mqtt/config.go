/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package mqtt

import (
	"fmt"
	"strings"

	commonconfig "github.com/nvidia-isaac/ota-file-service/pkg/config"
)

const (
	// Placeholders substituted into the topic pattern.
	RobotIdPlaceholder   = "<robot_id>"
	OperationPlaceholder = "<operation>"
)

// Config holds the broker connection parameters and the topic pattern shared
// by the cloud service and the robot daemon. Both sides must load the same
// pattern or they will not hear each other.
type Config struct {
	Host         string
	Port         int
	Transport    string
	WSPath       string
	TopicPattern string
}

// NewConfig builds a Config from the loaded system configuration.
func NewConfig() (*Config, error) {
	cfg := &Config{
		Host:         commonconfig.GetMQTTHost(),
		Port:         commonconfig.GetMQTTPort(),
		Transport:    commonconfig.GetMQTTTransport(),
		WSPath:       commonconfig.GetMQTTWSPath(),
		TopicPattern: commonconfig.GetMQTTTopicPattern(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the broker address and that the topic pattern carries both
// placeholders.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("the mqtt host is empty")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid mqtt port %d", c.Port)
	}
	switch c.Transport {
	case "tcp", "ws", "wss":
	default:
		return fmt.Errorf("unsupported mqtt transport %q", c.Transport)
	}
	if !strings.Contains(c.TopicPattern, RobotIdPlaceholder) {
		return fmt.Errorf("topic pattern %q is missing %s", c.TopicPattern, RobotIdPlaceholder)
	}
	if !strings.Contains(c.TopicPattern, OperationPlaceholder) {
		return fmt.Errorf("topic pattern %q is missing %s", c.TopicPattern, OperationPlaceholder)
	}
	return nil
}

// BrokerURL renders the paho broker address.
func (c *Config) BrokerURL() string {
	if c.Transport == "ws" || c.Transport == "wss" {
		path := c.WSPath
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return fmt.Sprintf("%s://%s:%d%s", c.Transport, c.Host, c.Port, path)
	}
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

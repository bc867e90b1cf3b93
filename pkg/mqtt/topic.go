/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package mqtt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
)

// render substitutes both placeholders into the topic pattern.
func (c *Config) render(robotId, operation string) string {
	topic := strings.ReplaceAll(c.TopicPattern, RobotIdPlaceholder, robotId)
	return strings.ReplaceAll(topic, OperationPlaceholder, operation)
}

// DeployTopic is where the cloud publishes deploy commands for one robot.
func (c *Config) DeployTopic(robotId string) string {
	return c.render(robotId, common.OperationDeploy)
}

// StateTopic is where one robot publishes its job-state snapshots.
func (c *Config) StateTopic(robotId string) string {
	return c.render(robotId, common.OperationState)
}

// AckTopic is where the cloud acknowledges terminal job states to one robot.
func (c *Config) AckTopic(robotId string) string {
	return c.render(robotId, common.OperationAck)
}

// StateWildcard is the subscription filter matching every robot's state topic.
func (c *Config) StateWildcard() string {
	return c.render("+", common.OperationState)
}

// MatchStateTopic recovers the robot id from a state topic. The second return
// is false when the topic does not match the configured pattern.
func (c *Config) MatchStateTopic(topic string) (string, bool) {
	pattern := regexp.QuoteMeta(c.render(RobotIdPlaceholder, common.OperationState))
	pattern = strings.ReplaceAll(pattern, regexp.QuoteMeta(RobotIdPlaceholder), "(.+)")
	re, err := regexp.Compile(fmt.Sprintf("^%s$", pattern))
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(topic)
	if len(m) != 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

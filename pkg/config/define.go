/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// db
	dbPrefix               = "db."
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbName                 = dbPrefix + "name"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetimeSecond    = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// s3
	s3Prefix    = "s3."
	s3Endpoint  = s3Prefix + "endpoint"
	s3Region    = s3Prefix + "region"
	s3AccessKey = s3Prefix + "access_key"
	s3SecretKey = s3Prefix + "secret_key"

	// mqtt
	mqttPrefix       = "mqtt."
	mqttHost         = mqttPrefix + "host"
	mqttPort         = mqttPrefix + "port"
	mqttTransport    = mqttPrefix + "transport"
	mqttWSPath       = mqttPrefix + "ws_path"
	mqttTopicPattern = mqttPrefix + "topic_pattern"

	// daemon
	daemonPrefix          = "daemon."
	daemonRobotId         = daemonPrefix + "robot_id"
	daemonCloudServiceURL = daemonPrefix + "cloud_service_url"
)

// env overrides, kept compatible with the deployment environment
var envBindings = map[string]string{
	dbHost:                "POSTGRES_HOST",
	dbPort:                "POSTGRES_PORT",
	dbUser:                "POSTGRES_USER",
	dbPassword:            "POSTGRES_PASSWORD",
	s3Endpoint:            "S3_ENDPOINT_URL",
	s3AccessKey:           "S3_ID",
	s3SecretKey:           "S3_ACCESS_KEY",
	mqttHost:              "MQTT_HOST",
	mqttPort:              "MQTT_PORT",
	daemonRobotId:         "ROBOT_ID",
	daemonCloudServiceURL: "CLOUD_SERVICE_URL",
}

const (
	// DefaultTopicPattern is substituted with a robot id and an operation to
	// form the broker topics.
	DefaultTopicPattern = "ota/<robot_id>/<operation>"

	defaultRobotId = "robot_a"
)

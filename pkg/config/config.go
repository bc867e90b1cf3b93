/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified YAML file and binds the
// environment overrides. Environment variables win over file values.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// GetDBHost returns the postgres host.
func GetDBHost() string {
	return getString(dbHost, "localhost")
}

// GetDBPort returns the postgres port.
func GetDBPort() int {
	return getInt(dbPort, 5432)
}

// GetDBUser returns the postgres user.
func GetDBUser() string {
	return getString(dbUser, "postgres")
}

// GetDBPassword returns the postgres password.
func GetDBPassword() string {
	return getString(dbPassword, "")
}

// GetDBName returns the database name.
func GetDBName() string {
	return getString(dbName, "")
}

// GetDBSslMode returns the postgres sslmode.
func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 0)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 0)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 0)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 0)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 0)
}

// GetS3Endpoint returns the object-store endpoint URL.
func GetS3Endpoint() string {
	return getString(s3Endpoint, "")
}

// GetS3Region returns the object-store region.
func GetS3Region() string {
	return getString(s3Region, "us-east-1")
}

// GetS3AccessKey returns the object-store access key id.
func GetS3AccessKey() string {
	return getString(s3AccessKey, "")
}

// GetS3SecretKey returns the object-store secret access key.
func GetS3SecretKey() string {
	return getString(s3SecretKey, "")
}

// GetMQTTHost returns the broker host.
func GetMQTTHost() string {
	return getString(mqttHost, "localhost")
}

// GetMQTTPort returns the broker port.
func GetMQTTPort() int {
	return getInt(mqttPort, 1883)
}

// GetMQTTTransport returns the broker transport, "tcp", "ws" or "wss".
func GetMQTTTransport() string {
	return getString(mqttTransport, "tcp")
}

// GetMQTTWSPath returns the websocket path, used only with the websockets transport.
func GetMQTTWSPath() string {
	return getString(mqttWSPath, "")
}

// GetMQTTTopicPattern returns the broker topic pattern.
func GetMQTTTopicPattern() string {
	return getString(mqttTopicPattern, DefaultTopicPattern)
}

// GetRobotId returns the robot id of the daemon.
func GetRobotId() string {
	return getString(daemonRobotId, defaultRobotId)
}

// GetCloudServiceURL returns the base URL of the cloud service, used by the
// daemon's upload path.
func GetCloudServiceURL() string {
	return getString(daemonCloudServiceURL, "")
}

/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonconfig "github.com/nvidia-isaac/ota-file-service/pkg/config"
	"github.com/nvidia-isaac/ota-file-service/pkg/daemon"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/options"
	"github.com/nvidia-isaac/ota-file-service/pkg/s3"
)

const defaultPort = 9000

func main() {
	if err := run(); err != nil {
		klog.ErrorS(err, "ota-daemon exited")
		klog.Flush()
		os.Exit(1)
	}
}

func run() error {
	opt := &options.Options{}
	if err := opt.InitFlags(defaultPort); err != nil {
		return err
	}
	if err := opt.InitLogs(); err != nil {
		return err
	}
	if err := commonconfig.LoadConfig(opt.Config); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	robotID := commonconfig.GetRobotId()

	store, err := s3.NewClient(ctx)
	if err != nil {
		return err
	}

	topics, err := mqtt.NewConfig()
	if err != nil {
		return err
	}
	broker, err := mqtt.NewClient(topics, "ota-daemon-"+robotID)
	if err != nil {
		return err
	}
	if err = broker.Connect(); err != nil {
		return err
	}
	defer broker.Disconnect()

	cloud := daemon.NewCloudClient(commonconfig.GetCloudServiceURL())
	d := daemon.NewDaemon(robotID, store, broker, topics, cloud)
	if err = d.Start(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	daemon.InitRouters(engine, d)

	addr := fmt.Sprintf("%s:%d", opt.Host, opt.Port)
	klog.Infof("ota-daemon for robot %s listening on %s", robotID, addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(addr)
	}()
	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		klog.Info("ota-daemon shutting down")
		return nil
	}
}

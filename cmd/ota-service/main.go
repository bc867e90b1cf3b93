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

	"github.com/nvidia-isaac/ota-file-service/pkg/common"
	commonconfig "github.com/nvidia-isaac/ota-file-service/pkg/config"
	dbclient "github.com/nvidia-isaac/ota-file-service/pkg/database/client"
	dbutils "github.com/nvidia-isaac/ota-file-service/pkg/database/utils"
	"github.com/nvidia-isaac/ota-file-service/pkg/mqtt"
	"github.com/nvidia-isaac/ota-file-service/pkg/options"
	"github.com/nvidia-isaac/ota-file-service/pkg/s3"
	"github.com/nvidia-isaac/ota-file-service/pkg/service"
	"github.com/nvidia-isaac/ota-file-service/pkg/service/handlers"
)

const defaultPort = 9005

func main() {
	if err := run(); err != nil {
		klog.ErrorS(err, "ota-service exited")
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

	db, err := dbclient.NewClient(dbutils.NewDBConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	if err = db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema, err: %v", err)
	}

	store, err := s3.NewClient(ctx)
	if err != nil {
		return err
	}
	if err = store.EnsureBucket(ctx, common.DefaultBucket); err != nil {
		return err
	}

	topics, err := mqtt.NewConfig()
	if err != nil {
		return err
	}
	broker, err := mqtt.NewClient(topics, "ota-service")
	if err != nil {
		return err
	}
	if err = broker.Connect(); err != nil {
		return err
	}
	defer broker.Disconnect()

	svc := service.New(db, store, broker, topics)
	if err = svc.Start(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.InitRouters(engine, handlers.NewHandler(svc))

	addr := fmt.Sprintf("%s:%d", opt.Host, opt.Port)
	klog.Infof("ota-service listening on %s", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(addr)
	}()
	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		klog.Info("ota-service shutting down")
		return nil
	}
}

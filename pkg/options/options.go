/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package options

import (
	"flag"
	"fmt"
	"strconv"

	"k8s.io/klog/v2"
)

type Options struct {
	Config  string
	Host    string
	Port    int
	Verbose int
}

// InitFlags initializes the command line flags:
//
//	-config: Path to the yaml config file (required)
//	-host: Listen address for the HTTP API
//	-port: Listen port for the HTTP API
//	-verbose: klog verbosity level
//
// After parsing flags, it validates that the config path is provided.
func (opt *Options) InitFlags(defaultPort int) error {
	if opt == nil {
		return fmt.Errorf("the options is not initialized")
	}
	flag.StringVar(&opt.Config, "config", "", "Path to the yaml config file")
	flag.StringVar(&opt.Host, "host", "0.0.0.0", "HTTP API host")
	flag.IntVar(&opt.Port, "port", defaultPort, "HTTP API port")
	flag.IntVar(&opt.Verbose, "verbose", 0, "Verbosity level")
	flag.Parse()
	if opt.Config == "" {
		return fmt.Errorf("-config is not found")
	}
	return nil
}

// InitLogs applies the verbosity level to klog.
func (opt *Options) InitLogs() error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs.Set("v", strconv.Itoa(opt.Verbose))
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dentvoice/cmd"
	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	applog "dentvoice/internal/log"
	"dentvoice/pkg/build"
)

// main is the entry point for the dictation client.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments
//   - Load configuration and apply flag overrides
//   - Initialize PortAudio when the command needs devices
//
// 2. Run Phase:
//   - Execute the selected command until it finishes or a
//     termination signal cancels it
//
// 3. Shutdown Phase:
//   - Commands release their streams, transports and visualizer
//   - PortAudio is terminated
func main() {
	os.Exit(run())
}

func run() int {
	// ==================== STARTUP PHASE ====================

	// Unstamped development builds are fine; say so at debug level.
	if err := build.Initialize(); err != nil {
		applog.Debugf("%v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		return 0 // --help or --version
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if err := opts.Apply(cfg); err != nil {
		applog.Fatalf("invalid flags: %v", err)
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	if opts.NeedsPortAudio() {
		if err := audio.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer func() {
			if err := audio.Terminate(); err != nil {
				applog.Warnf("%v", err)
			}
		}()
	}

	// ==================== RUN PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, opts, cfg); err != nil {
		applog.Errorf("%v", err)
		return 1
	}

	// ==================== SHUTDOWN PHASE ====================
	// Deferred: signal handling is released, then PortAudio terminates.
	return 0
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"beatsync/cmd"
	"beatsync/internal/log"
	"beatsync/pkg/build"
)

// main wires build info, signal handling and the command line together.
// Commands run until they finish or the process is interrupted.
func main() {
	// Development builds run without ldflags; that is not fatal.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

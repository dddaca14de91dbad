// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command holds helpers shared by the subcommands of host tools.
package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// TerminationSignals are the signals that interrupt a generation run.
var TerminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// CancelOnSignals returns a Context that is cancelled when any of sigs is
// received. With no sigs, TerminationSignals are used. Calling the returned
// CancelFunc stops listening.
func CancelOnSignals(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	if len(sigs) == 0 {
		sigs = TerminationSignals
	}
	ctx, cancel := context.WithCancel(ctx)
	c := make(chan os.Signal, 1)
	signal.Notify(c, sigs...)
	go func() {
		defer signal.Stop(c)
		select {
		case <-ctx.Done():
		case <-c:
			cancel()
		}
	}()
	return ctx, cancel
}

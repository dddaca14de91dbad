// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runner runs post-processing commands as local subprocesses.
package runner

import (
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/lib/logger"
)

// ErrTimeout is returned when a command outlives SubprocessRunner.Timeout.
var ErrTimeout = errors.New("command timed out")

// Runner runs a command to completion, writing its output to stdout and
// stderr.
type Runner interface {
	Run(ctx context.Context, command []string, stdout, stderr io.Writer) error
}

// SubprocessRunner runs commands as local subprocesses.
type SubprocessRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string

	// Env entries of the form "NAME=value". Nil inherits the environment.
	Env []string

	// Timeout bounds each command. Zero means no bound other than ctx.
	Timeout time.Duration
}

// Run looks the command up in PATH and runs it until it exits, ctx is
// cancelled, or Timeout elapses. A command that is stopped early is killed
// together with its process group.
func (r *SubprocessRunner) Run(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	if len(command) == 0 {
		return errors.New("empty command")
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		return err
	}
	var deadline <-chan time.Time
	if r.Timeout > 0 {
		timer := time.NewTimer(r.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	cmd := &exec.Cmd{
		Path:        path,
		Args:        command,
		Stdout:      stdout,
		Stderr:      stderr,
		Dir:         r.Dir,
		Env:         r.Env,
		SysProcAttr: &syscall.SysProcAttr{Setpgid: true},
	}
	logger.Debugf(ctx, "starting in %q: %v", r.Dir, cmd.Args)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting %v", command)
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		logger.Tracef(ctx, "%v finished in %v", command, time.Since(start))
		return errors.Wrapf(err, "running %v", command)
	case <-ctx.Done():
		killGroup(cmd, done)
		return ctx.Err()
	case <-deadline:
		killGroup(cmd, done)
		return errors.Wrapf(ErrTimeout, "%v after %v", command, r.Timeout)
	}
}

// killGroup kills the process group of cmd and waits for it to be reaped.
func killGroup(cmd *exec.Cmd, done <-chan error) {
	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	<-done
}

// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package generator

import (
	"bytes"
	"context"
	"time"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/lib/logger"
	"go.dartlang.org/sdk/tools/lib/runner"
)

// Formatters run over a whole output tree; anything slower is assumed hung.
const postProcessTimeout = 10 * time.Minute

// RunPostProcess runs each command, split into words like a shell would, in
// dir. It stops at the first failure.
func RunPostProcess(ctx context.Context, commands []string, dir string) error {
	return runPostProcess(ctx, &runner.SubprocessRunner{Dir: dir, Timeout: postProcessTimeout}, commands)
}

func runPostProcess(ctx context.Context, r runner.Runner, commands []string) error {
	for _, command := range commands {
		args, err := shlex.Split(command)
		if err != nil {
			return errors.Wrapf(err, "parsing %q", command)
		}
		if len(args) == 0 {
			continue
		}
		var out bytes.Buffer
		logger.Infof(ctx, "post-processing: %s", command)
		if err := r.Run(ctx, args, &out, &out); err != nil {
			return errors.Wrapf(err, "post-processing failed:\n%s", out.String())
		}
		if out.Len() > 0 {
			logger.Debugf(ctx, "%s", out.String())
		}
	}
	return nil
}

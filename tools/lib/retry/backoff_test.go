// Copyright 2018 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.
package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestZeroBackoff(t *testing.T) {
	backoff := ZeroBackoff{}
	backoff.Reset()
	if backoff.Next() != 0 {
		t.Error("invalid interval")
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := NewConstantBackoff(time.Second)
	backoff.Reset()
	if backoff.Next() != time.Second {
		t.Error("invalid interval")
	}
}

func TestMaxAttemptsBackoff(t *testing.T) {
	backoff := WithMaxAttempts(&ZeroBackoff{}, 4)
	backoff.Reset()
	for i := 0; i < 3; i++ {
		if backoff.Next() != 0 {
			t.Error("invalid interval")
		}
	}
	if backoff.Next() != Stop {
		t.Error("did not stop")
	}
}

func TestRetry(t *testing.T) {
	errFlaky := errors.New("flaky")
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, wantCalls: 1},
		{name: "recovers", failures: 2, wantCalls: 3},
		{name: "gives up", failures: 10, wantCalls: 4, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), WithMaxAttempts(&ZeroBackoff{}, 4), func() error {
				calls++
				if calls <= test.failures {
					return errFlaky
				}
				return nil
			})
			if (err != nil) != test.wantErr {
				t.Fatalf("Retry() = %v, wantErr %v", err, test.wantErr)
			}
			if calls != test.wantCalls {
				t.Errorf("got %d calls, want %d", calls, test.wantCalls)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, NewConstantBackoff(time.Hour), func() error {
		calls++
		return errors.New("always")
	})
	if err == nil || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want an error after 1 call", err, calls)
	}
}

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServeCancelsWorkersWhenListenFails(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	done := make(chan struct{})
	go func() {
		serve(
			func() error { return errors.New("listen tcp :3000: bind: address already in use") },
			stop,
			func() { <-ctx.Done() },
		)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

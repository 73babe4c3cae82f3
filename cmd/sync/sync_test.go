package sync

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
)

// The watch loop syncs immediately, then again on a filesystem change and
// again when the poll ticker fires.
func TestWatchLoopResyncs(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	clock = fakeClock

	changes := make(chan struct{}, 1)
	watchTree = func(string) (chan struct{}, error) {
		return changes, nil
	}

	syncs := make(chan struct{}, 16)
	syncOnce = func(context.Context, config.Profile, runOpts) error {
		syncs <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, config.Profile{LocalDir: "/local"}, runOpts{})
	}()

	// The first sync runs without waiting for an event.
	waitForSync(t, syncs)

	changes <- struct{}{}
	waitForSync(t, syncs)

	fakeClock.Advance(pollInterval)
	waitForSync(t, syncs)

	cancel()
	assert.NoError(t, <-done)
}

// Without --strict a failed sync is logged and the loop keeps watching.
func TestWatchLoopToleratesFailures(t *testing.T) {
	clock = clockwork.NewFakeClock()

	changes := make(chan struct{}, 1)
	watchTree = func(string) (chan struct{}, error) {
		return changes, nil
	}

	syncs := make(chan struct{}, 16)
	syncOnce = func(context.Context, config.Profile, runOpts) error {
		syncs <- struct{}{}
		return errors.New("connection reset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, config.Profile{LocalDir: "/local"}, runOpts{})
	}()

	waitForSync(t, syncs)
	changes <- struct{}{}
	waitForSync(t, syncs)

	cancel()
	assert.NoError(t, <-done)
}

// With --strict the first failed sync ends the loop with an error.
func TestWatchLoopStrictFailure(t *testing.T) {
	clock = clockwork.NewFakeClock()
	watchTree = func(string) (chan struct{}, error) {
		return make(chan struct{}), nil
	}

	syncErr := errors.New("connection reset")
	syncOnce = func(context.Context, config.Profile, runOpts) error {
		return syncErr
	}

	err := watchLoop(context.Background(),
		config.Profile{LocalDir: "/local"}, runOpts{strict: true})
	assert.Equal(t, syncErr, err)
}

// A failed watch setup is fatal before any sync runs.
func TestWatchLoopWatchFailure(t *testing.T) {
	clock = clockwork.NewFakeClock()
	watchTree = func(string) (chan struct{}, error) {
		return nil, errors.FileNotFound{Path: "/local"}
	}

	ran := false
	syncOnce = func(context.Context, config.Profile, runOpts) error {
		ran = true
		return nil
	}

	err := watchLoop(context.Background(),
		config.Profile{LocalDir: "/local"}, runOpts{})
	assert.Error(t, err)
	assert.False(t, ran)
}

func waitForSync(t *testing.T, syncs chan struct{}) {
	t.Helper()
	select {
	case <-syncs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a sync run")
	}
}

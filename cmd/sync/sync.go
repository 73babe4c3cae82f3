package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/cmd/util"
	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/fswatch"
	"github.com/treesync-io/treesync/pkg/pathmap"
	libsync "github.com/treesync-io/treesync/pkg/sync"
)

// Mocked for unit testing.
var (
	clock     = clockwork.NewRealClock()
	watchTree = fswatch.Watch
	syncOnce  = syncOnceImpl
)

// pollInterval is how often watch mode re-syncs even without a filesystem
// event, to pick up changes the watcher missed.
const pollInterval = 15 * time.Second

// New creates a new `sync` command.
func New() *cobra.Command {
	var flags util.ProfileFlags
	var strict bool
	var watch bool
	var skipUnknownTimes bool
	var workers int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the remote tree mirror the local tree",
		Long: `Make the remote tree an exact mirror of the local tree: push new files and
directories, remove remote entries with no local counterpart, and re-push
files that changed locally since the last sync.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := run(cmd.Context(), flags, runOpts{
				strict:           strict,
				watch:            watch,
				skipUnknownTimes: skipUnknownTimes,
				workers:          workers,
			}); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false,
		"Treat any failed transfer as a fatal error.")
	cmd.Flags().BoolVar(&watch, "watch", false,
		"Keep running, re-syncing whenever the local tree changes.")
	cmd.Flags().BoolVar(&skipUnknownTimes, "skip-unknown-times", false,
		"Skip files whose remote modification time can't be read, "+
			"instead of re-pushing them.")
	cmd.Flags().IntVar(&workers, "workers", 0,
		"The number of parallel transfers. Optional: defaults to 8.")
	return cmd
}

type runOpts struct {
	strict           bool
	watch            bool
	skipUnknownTimes bool
	workers          int
}

func run(ctx context.Context, flags util.ProfileFlags, opts runOpts) error {
	profile, err := flags.Resolve()
	if err != nil {
		return err
	}

	if !opts.watch {
		return syncOnce(ctx, profile, opts)
	}
	return watchLoop(ctx, profile, opts)
}

// syncOnceImpl runs one full sync over a fresh connection.
func syncOnceImpl(ctx context.Context, profile config.Profile, opts runOpts) error {
	session, err := util.Connect(profile)
	if err != nil {
		return err
	}
	defer session.Close()

	driverOpts := libsync.DefaultOptions
	driverOpts.PushOnUnknownTimestamp = !opts.skipUnknownTimes
	driverOpts.Workers = opts.workers
	mapper := pathmap.New(profile.LocalDir, profile.RemoteDir)
	driver := libsync.NewDriver(session.Store, session.Lister, mapper, driverOpts)

	result, err := driver.Sync(ctx)
	if err != nil {
		return errors.WithContext(err, "sync")
	}

	if err := util.ReportFailures(result.Failures(), opts.strict); err != nil {
		return err
	}
	if !result.Success() {
		return errors.NewFriendlyError("Sync failed: no items could be transferred.")
	}

	fmt.Printf("Synced %d items with %s.\n", result.Transferred(), profile.Server)
	return nil
}

// watchLoop syncs immediately, then again on every filesystem event under
// the local root and at least every pollInterval. Each run opens a fresh
// connection so that an idle server-side timeout between runs can't wedge
// the loop.
func watchLoop(ctx context.Context, profile config.Profile, opts runOpts) error {
	changes, err := watchTree(profile.LocalDir)
	if err != nil {
		return errors.WithContext(err, "watch local tree")
	}

	ticker := clock.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := syncOnce(ctx, profile, opts); err != nil {
			if opts.strict {
				return err
			}
			log.WithError(err).Error("Sync failed. Will retry on the next change.")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		case <-ticker.Chan():
		}
	}
}

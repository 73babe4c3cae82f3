package restore

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/cmd/util"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/pathmap"
	"github.com/treesync-io/treesync/pkg/sync"
)

// New creates a new `restore` command.
func New() *cobra.Command {
	var flags util.ProfileFlags
	var strict bool
	var workers int
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Copy the remote tree back to the local machine",
		Long: `Copy every file and directory under the remote root into the local root,
overwriting local files that already exist. Nothing is removed from the
local tree.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := run(cmd.Context(), flags, strict, workers); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false,
		"Treat any failed transfer as a fatal error.")
	cmd.Flags().IntVar(&workers, "workers", 0,
		"The number of parallel transfers. Optional: defaults to 8.")
	return cmd
}

func run(ctx context.Context, flags util.ProfileFlags, strict bool, workers int) error {
	profile, err := flags.Resolve()
	if err != nil {
		return err
	}

	session, err := util.Connect(profile)
	if err != nil {
		return err
	}
	defer session.Close()

	opts := sync.DefaultOptions
	opts.Workers = workers
	mapper := pathmap.New(profile.LocalDir, profile.RemoteDir)
	driver := sync.NewDriver(session.Store, session.Lister, mapper, opts)

	outcome, err := driver.Restore(ctx)
	if err != nil {
		return errors.WithContext(err, "restore")
	}

	if err := util.ReportFailures(outcome.Failed, strict); err != nil {
		return err
	}
	if !outcome.Success() {
		return errors.NewFriendlyError("Restore failed: no items could be transferred.")
	}

	fmt.Printf("Restored %d items from %s.\n", len(outcome.Succeeded), profile.Server)
	return nil
}

package backup

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/cmd/util"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/pathmap"
	"github.com/treesync-io/treesync/pkg/sync"
)

// New creates a new `backup` command.
func New() *cobra.Command {
	var flags util.ProfileFlags
	var strict bool
	var workers int
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the local tree to the remote server",
		Long: `Copy every file and directory under the local root to the remote root,
overwriting whatever is already there. Nothing is removed from the remote
tree. Use "sync" to make the remote tree an exact mirror.`,
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

	outcome, err := driver.Backup(ctx)
	if err != nil {
		return errors.WithContext(err, "backup")
	}

	if err := util.ReportFailures(outcome.Failed, strict); err != nil {
		return err
	}
	if !outcome.Success() {
		return errors.NewFriendlyError("Backup failed: no items could be transferred.")
	}

	fmt.Printf("Backed up %d items to %s.\n", len(outcome.Succeeded), profile.Server)
	return nil
}

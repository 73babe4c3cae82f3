package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/cmd/backup"
	configCmd "github.com/treesync-io/treesync/cmd/config"
	"github.com/treesync-io/treesync/cmd/restore"
	syncCmd "github.com/treesync-io/treesync/cmd/sync"
	"github.com/treesync-io/treesync/cmd/util"
	"github.com/treesync-io/treesync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "TREESYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "treesync",
		Short:        "Mirror a local directory tree to a remote server",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		backup.New(),
		configCmd.New(),
		restore.New(),
		syncCmd.New(),
		version.New(),
	)

	// An interrupt cancels the run's context so that in-flight transfers
	// stop being scheduled and the remote connection closes cleanly.
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.HandleFatalError(err)
	}
}

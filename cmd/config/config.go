package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/cmd/util"
	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	parseUserConfig           = config.ParseUser
	writeUserConfig           = config.WriteUser
	stat                      = os.Stat
)

// New creates a new `config` command.
func New() *cobra.Command {
	var profile config.Profile
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Save a connection profile to the treesync user configuration",
		Long: `Add or update a named connection profile in ` + config.UserConfigPath + `.
The saved profile is used by backup, restore, and sync, so the connection
flags don't have to be repeated on every run.`,
		Run: func(_ *cobra.Command, _ []string) {
			if err := SaveProfile(profile, makeDefault); err != nil {
				err = errors.NewFriendlyError("Failed to save configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&profile.Name, "name", "default",
		"The name of the profile.")
	cmd.Flags().StringVar(&profile.Protocol, "protocol", "",
		"The transfer protocol: ftp, scp, or sftp.")
	cmd.Flags().StringVar(&profile.Server, "server", "",
		"The remote server to connect to.")
	cmd.Flags().IntVar(&profile.Port, "port", 0,
		"The port to connect to. Optional: defaults to the protocol's standard port.")
	cmd.Flags().StringVar(&profile.User, "user", "",
		"The user to log in as.")
	cmd.Flags().StringVar(&profile.Password, "password", "",
		"The password to log in with. Stored in plain text.")
	cmd.Flags().StringVar(&profile.KeyFile, "key-file", "",
		"The SSH private key to log in with (scp and sftp only).")
	cmd.Flags().StringVar(&profile.RemoteDir, "remote-dir", "",
		"The root of the remote tree.")
	cmd.Flags().StringVar(&profile.LocalDir, "local-dir", "",
		"The root of the local tree.")
	cmd.Flags().BoolVar(&makeDefault, "default", false,
		"Make this the default profile.")

	cmd.AddCommand(&cobra.Command{
		Use:   "get-profiles",
		Short: "List the configured profile names",
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := parseUserConfig()
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "read config"))
			}

			for _, profile := range cfg.Profiles {
				name := profile.Name
				if name == cfg.DefaultProfile {
					name += " (default)"
				}
				fmt.Fprintln(stdout, name)
			}
		},
	})
	return cmd
}

// SaveProfile validates `profile` and merges it into the user config,
// replacing any existing profile with the same name.
func SaveProfile(profile config.Profile, makeDefault bool) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	// A missing config file just means this is the first profile.
	cfg, err := parseUserConfig()
	if err != nil {
		path, pathErr := config.GetUserConfigPath()
		if pathErr != nil {
			return errors.WithContext(pathErr, "expand config path")
		}
		if _, statErr := stat(path); !os.IsNotExist(statErr) {
			return errors.WithContext(err, "read config")
		}
		cfg = config.User{Version: config.SupportedUserConfigVersion}
	}

	replaced := false
	for i, existing := range cfg.Profiles {
		if existing.Name == profile.Name {
			cfg.Profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Profiles = append(cfg.Profiles, profile)
	}

	if makeDefault || cfg.DefaultProfile == "" {
		cfg.DefaultProfile = profile.Name
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote profile %q to %s\n", profile.Name, config.UserConfigPath)
	return nil
}

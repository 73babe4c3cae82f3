package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/sync"
)

func TestResolveUsesConfiguredProfile(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{
			DefaultProfile: "backup",
			Profiles: []config.Profile{
				{
					Name:      "backup",
					Protocol:  config.ProtocolSFTP,
					Server:    "backup.example.com",
					User:      "archivist",
					KeyFile:   "/home/archivist/.ssh/id_ed25519",
					RemoteDir: "/srv/backup",
					LocalDir:  "/home/archivist/docs",
				},
			},
		}, nil
	}

	profile, err := ProfileFlags{}.Resolve()
	assert.NoError(t, err)
	assert.Equal(t, "backup.example.com", profile.Server)
	assert.Equal(t, "/srv/backup", profile.RemoteDir)
	assert.Equal(t, "/home/archivist/docs", profile.LocalDir)
}

func TestResolveFlagsOverrideProfile(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{
			Profiles: []config.Profile{
				{
					Name:      "backup",
					Protocol:  config.ProtocolFTP,
					Server:    "backup.example.com",
					User:      "archivist",
					Password:  "hunter2",
					RemoteDir: "/srv/backup",
					LocalDir:  "/home/archivist/docs",
				},
			},
		}, nil
	}

	flags := ProfileFlags{
		Server:    "mirror.example.com",
		RemoteDir: "/srv/mirror",
	}
	profile, err := flags.Resolve()
	assert.NoError(t, err)
	assert.Equal(t, "mirror.example.com", profile.Server)
	assert.Equal(t, "/srv/mirror", profile.RemoteDir)

	// Fields without a flag keep the profile's values.
	assert.Equal(t, "archivist", profile.User)
	assert.Equal(t, config.ProtocolFTP, profile.Protocol)
}

func TestResolveWithoutConfigFile(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{}, errors.NewFriendlyError("no config")
	}

	// The flags alone describe a connection, so the missing config file
	// isn't an error.
	flags := ProfileFlags{
		Protocol:  config.ProtocolFTP,
		Server:    "backup.example.com",
		User:      "archivist",
		Password:  "hunter2",
		RemoteDir: "/srv/backup",
		LocalDir:  "/home/archivist/docs",
	}
	profile, err := flags.Resolve()
	assert.NoError(t, err)
	assert.Equal(t, "backup.example.com", profile.Server)

	// Without a server flag there's nothing to connect to, so the config
	// error is surfaced.
	_, err = ProfileFlags{}.Resolve()
	assert.Error(t, err)
}

func TestResolveRequiresRemoteDir(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{}, errors.NewFriendlyError("no config")
	}

	flags := ProfileFlags{
		Protocol: config.ProtocolFTP,
		Server:   "backup.example.com",
		User:     "archivist",
		Password: "hunter2",
	}
	_, err := flags.Resolve()
	assert.EqualError(t, err, errors.MissingFieldError{Field: "remoteDir"}.Error())
}

func TestResolveRejectsInvalidProfile(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{
			Profiles: []config.Profile{
				{
					Name:      "backup",
					Protocol:  "rsync",
					Server:    "backup.example.com",
					User:      "archivist",
					RemoteDir: "/srv/backup",
				},
			},
		}, nil
	}

	_, err := ProfileFlags{}.Resolve()
	assert.Error(t, err)
}

func TestReportFailures(t *testing.T) {
	failures := []sync.ItemError{
		{Path: "/srv/backup/a.txt", Err: errors.New("connection reset")},
	}

	assert.NoError(t, ReportFailures(failures, false))
	assert.NoError(t, ReportFailures(nil, true))
	assert.Error(t, ReportFailures(failures, true))
}

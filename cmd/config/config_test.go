package config

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
)

func mockSaveProfile(existing config.User, parseErr error, fileExists bool) *config.User {
	stdout = &bytes.Buffer{}
	parseUserConfig = func() (config.User, error) {
		return existing, parseErr
	}
	stat = func(string) (os.FileInfo, error) {
		if fileExists {
			return nil, nil
		}
		return nil, os.ErrNotExist
	}

	var written config.User
	writeUserConfig = func(cfg config.User) error {
		written = cfg
		return nil
	}
	return &written
}

func validProfile() config.Profile {
	return config.Profile{
		Name:      "backup",
		Protocol:  config.ProtocolFTP,
		Server:    "backup.example.com",
		User:      "archivist",
		Password:  "hunter2",
		RemoteDir: "/srv/backup",
	}
}

func TestSaveProfileCreatesConfig(t *testing.T) {
	written := mockSaveProfile(config.User{},
		errors.NewFriendlyError("no config"), false)

	assert.NoError(t, SaveProfile(validProfile(), false))
	assert.Equal(t, config.SupportedUserConfigVersion, written.Version)
	assert.Equal(t, []config.Profile{validProfile()}, written.Profiles)

	// The first profile becomes the default even without --default.
	assert.Equal(t, "backup", written.DefaultProfile)
}

func TestSaveProfileReplacesExisting(t *testing.T) {
	stale := validProfile()
	stale.Server = "old.example.com"
	other := validProfile()
	other.Name = "mirror"
	written := mockSaveProfile(config.User{
		DefaultProfile: "mirror",
		Profiles:       []config.Profile{other, stale},
	}, nil, true)

	assert.NoError(t, SaveProfile(validProfile(), false))
	assert.Equal(t, []config.Profile{other, validProfile()}, written.Profiles)

	// The existing default is kept unless --default is given.
	assert.Equal(t, "mirror", written.DefaultProfile)
}

func TestSaveProfileMakeDefault(t *testing.T) {
	other := validProfile()
	other.Name = "mirror"
	written := mockSaveProfile(config.User{
		DefaultProfile: "mirror",
		Profiles:       []config.Profile{other},
	}, nil, true)

	assert.NoError(t, SaveProfile(validProfile(), true))
	assert.Equal(t, "backup", written.DefaultProfile)
}

func TestSaveProfileRejectsInvalid(t *testing.T) {
	mockSaveProfile(config.User{}, nil, true)

	bad := validProfile()
	bad.Protocol = "rsync"
	assert.Error(t, SaveProfile(bad, false))

	bad = validProfile()
	bad.Server = ""
	assert.Error(t, SaveProfile(bad, false))
}

func TestSaveProfileCorruptConfig(t *testing.T) {
	// The config file exists but can't be parsed. Overwriting it would throw
	// away the user's other profiles, so this is an error.
	mockSaveProfile(config.User{},
		errors.New("parse: unmarshal strict"), true)

	assert.Error(t, SaveProfile(validProfile(), false))
}

package config

import (
	"fmt"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/treesync-io/treesync/pkg/errors"
)

const (
	// UserConfigPath is the default path to the treesync user config.
	UserConfigPath = "~/.treesync.yaml"

	// InitialUserConfigVersion is the first version of the treesync user
	// config. Config files that do not specify a version will default to
	// this version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the treesync
	// user config of the current treesync binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// Supported transfer protocols.
const (
	ProtocolFTP  = "ftp"
	ProtocolSCP  = "scp"
	ProtocolSFTP = "sftp"
)

// User is the on-disk user config: a set of named connection profiles.
type User struct {
	Version        string    `json:"version,omitempty"`
	DefaultProfile string    `json:"defaultProfile,omitempty"`
	Profiles       []Profile `json:"profiles,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// Profile describes one remote server along with the directory roots to
// synchronize.
type Profile struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Server   string `json:"server"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`

	// Password authenticates FTP connections, and SSH connections when no
	// key file is given.
	Password string `json:"password,omitempty"`

	// KeyFile is the path to the SSH private key used for SCP and SFTP.
	KeyFile string `json:"keyFile,omitempty"`

	// KnownHostsFile overrides the default ~/.ssh/known_hosts used to
	// verify the server's identity.
	KnownHostsFile string `json:"knownHostsFile,omitempty"`

	// InsecureSkipVerify disables host key verification for SSH, and
	// certificate verification for FTPS.
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty"`

	// TLS enables explicit TLS on FTP connections.
	TLS bool `json:"tls,omitempty"`

	RemoteDir string `json:"remoteDir,omitempty"`
	LocalDir  string `json:"localDir,omitempty"`
}

// Validate checks that the fields needed to open a connection are present.
func (p Profile) Validate() error {
	switch {
	case p.Server == "":
		return errors.MissingFieldError{Field: "server"}
	case p.User == "":
		return errors.MissingFieldError{Field: "user"}
	}

	switch p.Protocol {
	case ProtocolFTP, ProtocolSCP, ProtocolSFTP:
		return nil
	case "":
		return errors.MissingFieldError{Field: "protocol"}
	default:
		return errors.NewFriendlyError(
			"Unknown protocol %q in profile %q. "+
				"Supported protocols are ftp, scp, and sftp.", p.Protocol, p.Name)
	}
}

// Address returns the host:port to dial, applying the protocol's default
// port when none is configured.
func (p Profile) Address() string {
	port := p.Port
	if port == 0 {
		if p.Protocol == ProtocolFTP {
			port = 21
		} else {
			port = 22
		}
	}
	return fmt.Sprintf("%s:%d", p.Server, port)
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser attempts to parse the User stored in the default path.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return User{}, errors.NewFriendlyError("The treesync user config "+
				"file doesn't exist at %q. Please run `treesync config` to "+
				"create it.", path)
		}
		return User{}, errors.WithContext(err, "parse")
	}

	for i := range config.Profiles {
		if err := expandProfilePaths(&config.Profiles[i], filepath.Dir(path)); err != nil {
			return User{}, err
		}
	}
	return config, nil
}

// Profile returns the named profile, or the default profile when `name` is
// empty.
func (u User) Profile(name string) (Profile, error) {
	if name == "" {
		name = u.DefaultProfile
	}
	if name == "" && len(u.Profiles) == 1 {
		return u.Profiles[0], nil
	}

	for _, profile := range u.Profiles {
		if profile.Name == name {
			return profile, nil
		}
	}
	return Profile{}, errors.NewFriendlyError(
		"No profile named %q in the treesync user config. "+
			"Run `treesync config` to review the configured profiles.", name)
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the user's global treesync
// configuration. This path is expanded, so it can be directly passed to file
// operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}

// expandProfilePaths expands `~` in the profile's path fields and evaluates
// relative paths relative to the config file.
func expandProfilePaths(profile *Profile, configDir string) error {
	for _, field := range []*string{
		&profile.KeyFile, &profile.KnownHostsFile, &profile.LocalDir,
	} {
		if *field == "" {
			continue
		}

		expanded, err := homedirExpand(*field)
		if err != nil {
			return errors.WithContext(err, "expand path")
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(configDir, expanded)
		}
		*field = expanded
	}
	return nil
}

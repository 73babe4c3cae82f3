package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/remote"
	"github.com/treesync-io/treesync/pkg/remote/ftp"
	"github.com/treesync-io/treesync/pkg/remote/scp"
	"github.com/treesync-io/treesync/pkg/remote/sftp"
	"github.com/treesync-io/treesync/pkg/sync"
)

// Mocked for unit testing.
var (
	stderr          io.Writer = os.Stderr
	exit                      = os.Exit
	parseUserConfig           = config.ParseUser
	connect                   = connectImpl
)

// HandleFatalError prints a friendly representation of `err` and exits.
func HandleFatalError(err error) {
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic recovers from panics in the main goroutine so that users get
// a pointer to the issue tracker instead of a raw stack trace.
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	fmt.Fprintf(stderr, "treesync crashed: %v\n\n%s\n", r, debug.Stack())
	fmt.Fprintln(stderr, "This is a bug. Please report it at "+
		"https://github.com/treesync-io/treesync/issues.")
	exit(1)
}

// Session bundles the handles on one open remote connection. The storage
// and lister views are backed by the same connection, so a Session must not
// be shared between concurrent runs.
type Session struct {
	Store  remote.Storage
	Lister sync.Lister

	closer remote.Closer
}

// Close disconnects from the remote server.
func (s Session) Close() error {
	return s.closer.Close()
}

// Connect opens a connection to the profile's server using the protocol it
// configures.
func Connect(profile config.Profile) (Session, error) {
	return connect(profile)
}

func connectImpl(profile config.Profile) (Session, error) {
	switch profile.Protocol {
	case config.ProtocolFTP:
		client, err := ftp.Connect(profile)
		if err != nil {
			return Session{}, err
		}
		return Session{Store: client, Lister: client, closer: client}, nil
	case config.ProtocolSFTP:
		client, err := sftp.Connect(profile)
		if err != nil {
			return Session{}, err
		}
		return Session{Store: client, Lister: client, closer: client}, nil
	case config.ProtocolSCP:
		client, err := scp.Connect(profile)
		if err != nil {
			return Session{}, err
		}
		return Session{Store: client, Lister: client, closer: client}, nil
	default:
		// Validate rejects unknown protocols before we get here.
		return Session{}, errors.New(fmt.Sprintf("unsupported protocol %q", profile.Protocol))
	}
}

// ReportFailures logs every per-item transfer failure. In strict mode, any
// failure is promoted to a fatal error.
func ReportFailures(failures []sync.ItemError, strict bool) error {
	for _, failure := range failures {
		log.WithError(failure.Err).WithField("path", failure.Path).
			Error("Transfer failed")
	}

	if strict && len(failures) > 0 {
		return errors.NewFriendlyError("%d items failed to transfer", len(failures))
	}
	return nil
}

// ProfileFlags are the connection flags shared by the backup, restore, and
// sync commands. Each flag overrides the corresponding field of the selected
// profile, so a server can be used without a config file at all.
type ProfileFlags struct {
	Profile string

	Protocol  string
	Server    string
	Port      int
	User      string
	Password  string
	KeyFile   string
	RemoteDir string
	LocalDir  string
}

// Register adds the shared connection flags to `cmd`.
func (f *ProfileFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Profile, "profile", "",
		"The name of the connection profile in "+config.UserConfigPath+". "+
			"Optional: defaults to the config's default profile.")
	cmd.Flags().StringVar(&f.Protocol, "protocol", "",
		"The transfer protocol: ftp, scp, or sftp.")
	cmd.Flags().StringVar(&f.Server, "server", "",
		"The remote server to connect to.")
	cmd.Flags().IntVar(&f.Port, "port", 0,
		"The port to connect to. Optional: defaults to the protocol's standard port.")
	cmd.Flags().StringVar(&f.User, "user", "",
		"The user to log in as.")
	cmd.Flags().StringVar(&f.Password, "password", "",
		"The password to log in with.")
	cmd.Flags().StringVar(&f.KeyFile, "key-file", "",
		"The SSH private key to log in with (scp and sftp only).")
	cmd.Flags().StringVar(&f.RemoteDir, "remote-dir", "",
		"The root of the remote tree.")
	cmd.Flags().StringVar(&f.LocalDir, "local-dir", "",
		"The root of the local tree. Optional: defaults to the current directory.")
}

// Resolve merges the flags over the configured profile and validates the
// result. A missing config file is only an error when the flags alone don't
// describe a connection.
func (f ProfileFlags) Resolve() (config.Profile, error) {
	var profile config.Profile
	userConfig, err := parseUserConfig()
	switch {
	case err == nil:
		profile, err = userConfig.Profile(f.Profile)
		if err != nil {
			return config.Profile{}, err
		}
	case f.Server == "":
		return config.Profile{}, err
	}

	f.overlay(&profile)

	if err := profile.Validate(); err != nil {
		return config.Profile{}, err
	}

	if profile.RemoteDir == "" {
		return config.Profile{}, errors.MissingFieldError{Field: "remoteDir"}
	}
	if profile.LocalDir == "" {
		profile.LocalDir, err = os.Getwd()
		if err != nil {
			return config.Profile{}, errors.WithContext(err, "get working directory")
		}
	}
	profile.LocalDir, err = filepath.Abs(profile.LocalDir)
	if err != nil {
		return config.Profile{}, errors.WithContext(err, "resolve local directory")
	}
	return profile, nil
}

func (f ProfileFlags) overlay(profile *config.Profile) {
	if f.Protocol != "" {
		profile.Protocol = f.Protocol
	}
	if f.Server != "" {
		profile.Server = f.Server
	}
	if f.Port != 0 {
		profile.Port = f.Port
	}
	if f.User != "" {
		profile.User = f.User
	}
	if f.Password != "" {
		profile.Password = f.Password
	}
	if f.KeyFile != "" {
		profile.KeyFile = f.KeyFile
	}
	if f.RemoteDir != "" {
		profile.RemoteDir = f.RemoteDir
	}
	if f.LocalDir != "" {
		profile.LocalDir = f.LocalDir
	}
}

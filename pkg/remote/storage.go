// Package remote defines the storage operations a backend must implement to
// be driven by the sync engine, and the shared connection plumbing for the
// FTP, SCP, and SFTP implementations.
package remote

import (
	"time"

	"github.com/treesync-io/treesync/pkg/errors"
)

// ErrNoModTime is returned by ModTime when the backend can't report a usable
// timestamp for the path. It's a distinguishable outcome rather than a zero
// sentinel so that the staleness oracle can simply omit the entry.
var ErrNoModTime = errors.New("modification time not available")

// Storage is the set of operations the sync engine performs against a remote
// server. One implementation exists per protocol.
//
// A Storage is backed by a single control connection and is not safe for
// concurrent use unless the implementation documents otherwise.
type Storage interface {
	// Exists reports whether the remote path exists.
	Exists(path string) (bool, error)

	// EnsurePath creates the directory at `path` along with any missing
	// parents. It must be idempotent: creating a directory that already
	// exists is not an error.
	EnsurePath(path string) error

	// Put uploads the local file to the remote path, overwriting any
	// existing file.
	Put(localPath, remotePath string) error

	// Get downloads the remote file to the local path, overwriting any
	// existing file.
	Get(remotePath, localPath string) error

	// Delete removes a remote file.
	Delete(path string) error

	// RemoveDirectory removes a remote directory.
	RemoveDirectory(path string) error

	// ModTime returns the modification time of the remote path. It returns
	// ErrNoModTime when the server can't report one.
	ModTime(path string) (time.Time, error)
}

// Closer is implemented by backends whose sessions must be released when the
// run finishes.
type Closer interface {
	Close() error
}

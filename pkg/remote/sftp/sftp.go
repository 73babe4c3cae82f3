// Package sftp implements the remote storage operations over SFTP.
package sftp

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/remote"
	"github.com/treesync-io/treesync/pkg/remote/sshconn"
	"github.com/treesync-io/treesync/pkg/sync"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Client drives one SFTP session. It implements both the storage port and
// the remote lister.
type Client struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Connect dials the profile's server and opens an SFTP session on top of
// the SSH connection.
func Connect(profile config.Profile) (*Client, error) {
	sshClient, err := sshconn.Dial(profile)
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, errors.ConnectivityError{
			Server: profile.Server,
			Err:    errors.WithContext(err, "open sftp session"),
		}
	}
	return &Client{ssh: sshClient, sftp: sftpClient}, nil
}

// Close releases the SFTP session and the underlying SSH connection.
func (c *Client) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}

// List walks the remote tree under `root`.
func (c *Client) List(root string) (sync.Snapshot, error) {
	snapshot := sync.NewSnapshot()

	walker := c.sftp.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, err
		}

		entryPath := walker.Path()
		if strings.TrimRight(entryPath, "/") == strings.TrimRight(root, "/") {
			continue
		}

		kind := sync.KindFile
		if walker.Stat().IsDir() {
			kind = sync.KindDirectory
		}
		snapshot.Add(entryPath, kind)
	}
	return snapshot, nil
}

// Exists reports whether the remote path exists.
func (c *Client) Exists(remotePath string) (bool, error) {
	if _, err := c.sftp.Stat(remotePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsurePath creates the directory and any missing parents.
func (c *Client) EnsurePath(remotePath string) error {
	return c.sftp.MkdirAll(remotePath)
}

// Put uploads the local file, preserving its modification time so that
// later staleness checks compare like with like.
func (c *Client) Put(localPath, remotePath string) error {
	src, err := fs.Open(localPath)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return errors.WithContext(err, "stat source")
	}

	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.WithContext(err, "copy")
	}
	if err := dst.Close(); err != nil {
		return errors.WithContext(err, "close destination")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := c.sftp.Chtimes(remotePath, time.Now(), fi.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}
	return nil
}

// Get downloads the remote file, preserving its modification time.
func (c *Client) Get(remotePath, localPath string) error {
	src, err := c.sftp.Open(remotePath)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return errors.WithContext(err, "stat source")
	}

	if err := afero.WriteReader(fs, localPath, src); err != nil {
		return errors.WithContext(err, "write destination")
	}

	if err := fs.Chtimes(localPath, time.Now(), fi.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}
	return nil
}

// Delete removes a remote file.
func (c *Client) Delete(remotePath string) error {
	return c.sftp.Remove(remotePath)
}

// RemoveDirectory removes a remote directory.
func (c *Client) RemoveDirectory(remotePath string) error {
	return c.sftp.RemoveDirectory(remotePath)
}

// ModTime returns the path's modification time.
func (c *Client) ModTime(remotePath string) (time.Time, error) {
	fi, err := c.sftp.Stat(remotePath)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

var _ remote.Storage = &Client{}
var _ sync.Lister = &Client{}

// Package scp implements the remote storage operations over SCP. File
// transfers use the SCP protocol itself; everything else (directory
// creation, removal, listing) runs as shell commands over the same SSH
// connection, since SCP has no notion of those operations.
package scp

import (
	"context"
	"fmt"
	"strings"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
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

// Client drives SCP transfers over one SSH connection.
type Client struct {
	ssh *ssh.Client
}

// Connect dials and authenticates to the profile's server.
func Connect(profile config.Profile) (*Client, error) {
	sshClient, err := sshconn.Dial(profile)
	if err != nil {
		return nil, err
	}
	return &Client{ssh: sshClient}, nil
}

// Close releases the SSH connection.
func (c *Client) Close() error {
	return c.ssh.Close()
}

// List enumerates the remote tree with `find`, one invocation for
// directories and one for files.
func (c *Client) List(root string) (sync.Snapshot, error) {
	snapshot := sync.NewSnapshot()

	dirs, err := c.runCommand(fmt.Sprintf("find %s -mindepth 1 -type d", shellQuote(root)))
	if err != nil {
		return nil, errors.WithContext(err, "list directories")
	}
	for _, path := range splitLines(dirs) {
		snapshot.Add(path, sync.KindDirectory)
	}

	files, err := c.runCommand(fmt.Sprintf("find %s -mindepth 1 ! -type d", shellQuote(root)))
	if err != nil {
		return nil, errors.WithContext(err, "list files")
	}
	for _, path := range splitLines(files) {
		snapshot.Add(path, sync.KindFile)
	}
	return snapshot, nil
}

// Exists reports whether the remote path exists.
func (c *Client) Exists(remotePath string) (bool, error) {
	_, err := c.runCommand(fmt.Sprintf("test -e %s", shellQuote(remotePath)))
	if err != nil {
		if _, ok := errors.RootCause(err).(*ssh.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsurePath creates the directory and any missing parents.
func (c *Client) EnsurePath(remotePath string) error {
	_, err := c.runCommand(fmt.Sprintf("mkdir -p %s", shellQuote(remotePath)))
	return err
}

// Put uploads the local file over SCP.
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

	scpClient, err := scp.NewClientBySSH(c.ssh)
	if err != nil {
		return errors.WithContext(err, "open scp session")
	}
	defer scpClient.Close()

	err = scpClient.Copy(context.Background(), src, remotePath, "0644", fi.Size())
	if err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

// Get downloads the remote file over SCP.
func (c *Client) Get(remotePath, localPath string) error {
	dst, err := fs.Create(localPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer dst.Close()

	scpClient, err := scp.NewClientBySSH(c.ssh)
	if err != nil {
		return errors.WithContext(err, "open scp session")
	}
	defer scpClient.Close()

	err = scpClient.CopyFromRemotePassThru(context.Background(), dst, remotePath, nil)
	if err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

// Delete removes a remote file.
func (c *Client) Delete(remotePath string) error {
	_, err := c.runCommand(fmt.Sprintf("rm -- %s", shellQuote(remotePath)))
	return err
}

// RemoveDirectory removes a remote directory.
func (c *Client) RemoveDirectory(remotePath string) error {
	_, err := c.runCommand(fmt.Sprintf("rmdir -- %s", shellQuote(remotePath)))
	return err
}

// ModTime is unsupported: SCP carries no listing or stat protocol, and
// `stat` output isn't portable across servers. The engine's unknown
// timestamp policy decides what happens to these entries.
func (c *Client) ModTime(remotePath string) (time.Time, error) {
	return time.Time{}, remote.ErrNoModTime
}

// runCommand executes one shell command over a fresh SSH session and
// returns its stdout.
func (c *Client) runCommand(command string) (string, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return "", errors.WithContext(err, "open session")
	}
	defer session.Close()

	out, err := session.Output(command)
	if err != nil {
		return "", errors.WithContext(err, fmt.Sprintf("run %q", command))
	}
	return string(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// shellQuote single-quotes a path for the remote shell.
func shellQuote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

var _ remote.Storage = &Client{}
var _ sync.Lister = &Client{}

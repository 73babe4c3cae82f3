// Package ftp implements the remote storage operations over FTP, with
// optional explicit TLS.
package ftp

import (
	"crypto/tls"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/spf13/afero"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/remote"
	"github.com/treesync-io/treesync/pkg/sync"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

const dialTimeout = 30 * time.Second

// Client drives one FTP control connection. It implements both the storage
// port and the remote lister.
type Client struct {
	conn *ftp.ServerConn
}

// Connect dials and authenticates to the profile's server.
func Connect(profile config.Profile) (*Client, error) {
	opts := []ftp.DialOption{ftp.DialWithTimeout(dialTimeout)}
	if profile.TLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName:         profile.Server,
			InsecureSkipVerify: profile.InsecureSkipVerify,
		}))
	}

	conn, err := ftp.Dial(profile.Address(), opts...)
	if err != nil {
		return nil, errors.ConnectivityError{Server: profile.Server, Err: err}
	}

	if err := conn.Login(profile.User, profile.Password); err != nil {
		_ = conn.Quit()
		return nil, errors.ConnectivityError{
			Server: profile.Server,
			Err:    errors.WithContext(err, "login"),
		}
	}
	return &Client{conn: conn}, nil
}

// Close logs out and closes the control connection.
func (c *Client) Close() error {
	return c.conn.Quit()
}

// List walks the remote tree under `root`. Entry kinds come from the
// server's directory listings.
func (c *Client) List(root string) (sync.Snapshot, error) {
	snapshot := sync.NewSnapshot()

	walker := c.conn.Walk(root)
	for walker.Next() {
		entry := walker.Stat()
		entryPath := strings.TrimRight(walker.Path(), "/")
		if entryPath == strings.TrimRight(root, "/") {
			continue
		}

		kind := sync.KindFile
		if entry.Type == ftp.EntryTypeFolder {
			kind = sync.KindDirectory
		}
		snapshot.Add(entryPath, kind)
	}
	if err := walker.Err(); err != nil {
		// An empty tree is not an error, but the root must exist.
		return nil, err
	}
	return snapshot, nil
}

// Exists reports whether the path appears in its parent's listing.
func (c *Client) Exists(remotePath string) (bool, error) {
	entries, err := c.conn.List(path.Dir(remotePath))
	if err != nil {
		return false, err
	}

	name := path.Base(remotePath)
	for _, entry := range entries {
		if entry.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// EnsurePath creates the directory and any missing parents. MKD on an
// existing directory fails on most servers, so each level's error is
// ignored; a genuinely failed creation surfaces on the upload that follows.
func (c *Client) EnsurePath(remotePath string) error {
	var prefix string
	if strings.HasPrefix(remotePath, "/") {
		prefix = "/"
	}

	for _, segment := range strings.Split(strings.Trim(remotePath, "/"), "/") {
		prefix = path.Join(prefix, segment)
		_ = c.conn.MakeDir(prefix)
	}
	return nil
}

// Put uploads the local file, overwriting any existing remote file.
func (c *Client) Put(localPath, remotePath string) error {
	src, err := fs.Open(localPath)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer src.Close()

	return c.conn.Stor(remotePath, src)
}

// Get downloads the remote file, overwriting any existing local file.
func (c *Client) Get(remotePath, localPath string) error {
	resp, err := c.conn.Retr(remotePath)
	if err != nil {
		return errors.WithContext(err, "retrieve")
	}
	defer resp.Close()

	if err := afero.WriteReader(fs, localPath, resp); err != nil {
		return errors.WithContext(err, "write destination")
	}
	return nil
}

// Delete removes a remote file.
func (c *Client) Delete(remotePath string) error {
	return c.conn.Delete(remotePath)
}

// RemoveDirectory removes a remote directory.
func (c *Client) RemoveDirectory(remotePath string) error {
	return c.conn.RemoveDir(remotePath)
}

// ModTime queries the path's modification time over MDTM. Servers without
// MDTM support can't report timestamps at all.
func (c *Client) ModTime(remotePath string) (time.Time, error) {
	if !c.conn.IsGetTimeSupported() {
		return time.Time{}, remote.ErrNoModTime
	}
	return c.conn.GetTime(remotePath)
}

var _ remote.Storage = &Client{}
var _ sync.Lister = &Client{}

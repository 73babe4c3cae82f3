// Package pathmap translates paths between the local directory namespace and
// the remote server namespace. The mapping is a pure prefix swap: no case
// folding, globbing, or symlink resolution is performed, so callers must pass
// roots that actually match the paths produced by the tree listers.
package pathmap

import (
	"strings"

	"github.com/treesync-io/treesync/pkg/errors"
)

// Mapper is a bijective translation between a local root and a remote root.
// It's immutable for the lifetime of a run.
type Mapper struct {
	localRoot  string
	remoteRoot string
}

// New creates a Mapper for the given roots. Both roots are normalized to end
// with a path separator so that prefix matching can't cross sibling
// directories (e.g. `/data` matching `/database`).
func New(localRoot, remoteRoot string) *Mapper {
	return &Mapper{
		localRoot:  normalizeRoot(localRoot),
		remoteRoot: normalizeRoot(remoteRoot),
	}
}

// LocalRoot returns the normalized local root.
func (m *Mapper) LocalRoot() string {
	return m.localRoot
}

// RemoteRoot returns the normalized remote root.
func (m *Mapper) RemoteRoot() string {
	return m.remoteRoot
}

// ToRemote maps a path under the local root to its counterpart under the
// remote root.
func (m *Mapper) ToRemote(localPath string) (string, error) {
	suffix, err := trimRoot(localPath, m.localRoot)
	if err != nil {
		return "", err
	}
	return m.remoteRoot + suffix, nil
}

// ToLocal maps a path under the remote root to its counterpart under the
// local root. It's the inverse of ToRemote.
func (m *Mapper) ToLocal(remotePath string) (string, error) {
	suffix, err := trimRoot(remotePath, m.remoteRoot)
	if err != nil {
		return "", err
	}
	return m.localRoot + suffix, nil
}

func trimRoot(path, root string) (string, error) {
	// The root itself maps to the other root.
	if path == root || path+"/" == root {
		return "", nil
	}

	if !strings.HasPrefix(path, root) {
		return "", errors.BadMapping{Path: path, Root: root}
	}
	return path[len(root):], nil
}

func normalizeRoot(root string) string {
	if !strings.HasSuffix(root, "/") {
		return root + "/"
	}
	return root
}

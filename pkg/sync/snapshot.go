package sync

import (
	"os"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"

	"github.com/treesync-io/treesync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Kind is the type of a tree entry, discovered at listing time. Capturing it
// in the snapshot lets the executor dispatch directly to the right removal
// operation instead of probing the server.
type Kind string

const (
	// KindFile is a regular file.
	KindFile Kind = "file"

	// KindDirectory is a directory.
	KindDirectory Kind = "directory"

	// KindUnknown is used by backends that can't report an entry's type.
	KindUnknown Kind = ""
)

// Snapshot is a point-in-time enumeration of one side of a synchronized
// tree: the set of paths that exist, each tagged with its Kind. Order is
// irrelevant.
type Snapshot map[string]Kind

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{}
}

// Add records that `path` exists with the given kind.
func (s Snapshot) Add(path string, kind Kind) {
	s[path] = kind
}

// Remove records that `path` no longer exists.
func (s Snapshot) Remove(path string) {
	delete(s, path)
}

// Contains reports whether `path` is in the snapshot.
func (s Snapshot) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Kind returns the kind recorded for `path`, or KindUnknown if the path
// isn't in the snapshot.
func (s Snapshot) Kind(path string) Kind {
	return s[path]
}

// Paths returns the snapshot's paths as a set.
func (s Snapshot) Paths() mapset.Set[string] {
	paths := mapset.NewSetWithSize[string](len(s))
	for path := range s {
		paths.Add(path)
	}
	return paths
}

// sortedPaths returns the snapshot's paths in lexical order so that plans
// and log output are deterministic.
func (s Snapshot) sortedPaths() []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// A Lister produces a full recursive Snapshot of the tree rooted at `root`.
// The local filesystem and each remote backend provide their own
// implementation. Listing an empty tree yields an empty snapshot without
// error; a listing failure is fatal to the run.
type Lister interface {
	List(root string) (Snapshot, error)
}

// LocalLister enumerates a tree on the local filesystem.
type LocalLister struct{}

// List walks the tree under `root` and returns every file and directory
// below it. The root itself is not included.
func (LocalLister) List(root string) (Snapshot, error) {
	snapshot := NewSnapshot()
	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == root || path+"/" == root {
			return nil
		}

		kind := KindFile
		if fi.IsDir() {
			kind = KindDirectory
		}
		snapshot.Add(path, kind)
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "walk")
	}
	return snapshot, nil
}

package sync

import (
	"strings"
	goSync "sync"
	"time"

	"github.com/spf13/afero"

	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/remote"
)

// fakeEntry is one path on the fake server.
type fakeEntry struct {
	kind    Kind
	modTime time.Time
}

// fakeStore is an in-memory remote backend. Failures can be injected per
// path and per operation.
type fakeStore struct {
	lock    goSync.Mutex
	entries map[string]fakeEntry

	putErr     map[string]error
	deleteErr  map[string]error
	rmDirErr   map[string]error
	modTimeErr map[string]error

	// reportKinds controls whether the fake lister reports entry kinds, or
	// returns KindUnknown the way a backend with a bare name listing would.
	reportKinds bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:     map[string]fakeEntry{},
		putErr:      map[string]error{},
		deleteErr:   map[string]error{},
		rmDirErr:    map[string]error{},
		modTimeErr:  map[string]error{},
		reportKinds: true,
	}
}

func (s *fakeStore) addFile(path string, modTime time.Time) {
	s.entries[path] = fakeEntry{kind: KindFile, modTime: modTime}
}

func (s *fakeStore) addDir(path string, modTime time.Time) {
	s.entries[path] = fakeEntry{kind: KindDirectory, modTime: modTime}
}

func (s *fakeStore) Exists(path string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, ok := s.entries[path]
	return ok, nil
}

func (s *fakeStore) EnsurePath(path string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if entry, ok := s.entries[path]; ok && entry.kind == KindDirectory {
		return nil
	}
	s.entries[path] = fakeEntry{kind: KindDirectory, modTime: time.Now()}
	return nil
}

func (s *fakeStore) Put(localPath, remotePath string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.putErr[remotePath]; err != nil {
		return err
	}

	// Mirror a server that preserves the uploaded file's timestamp.
	modTime := time.Now()
	if fi, err := fs.Stat(localPath); err == nil {
		modTime = fi.ModTime()
	}
	s.entries[remotePath] = fakeEntry{kind: KindFile, modTime: modTime}
	return nil
}

func (s *fakeStore) Get(remotePath, localPath string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entry, ok := s.entries[remotePath]
	if !ok {
		return errors.FileNotFound{Path: remotePath}
	}
	if entry.kind != KindFile {
		return errors.New("not a file")
	}
	return afero.WriteFile(fs, localPath, []byte("restored:"+remotePath), 0644)
}

func (s *fakeStore) Delete(path string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.deleteErr[path]; err != nil {
		return err
	}

	entry, ok := s.entries[path]
	if !ok {
		return errors.FileNotFound{Path: path}
	}
	if entry.kind == KindDirectory {
		return errors.New("550 not a plain file")
	}
	delete(s.entries, path)
	return nil
}

func (s *fakeStore) RemoveDirectory(path string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.rmDirErr[path]; err != nil {
		return err
	}

	entry, ok := s.entries[path]
	if !ok {
		return errors.FileNotFound{Path: path}
	}
	if entry.kind != KindDirectory {
		return errors.New("550 not a directory")
	}

	// Real servers refuse to remove a directory that still has entries.
	for other := range s.entries {
		if strings.HasPrefix(other, path+"/") {
			return errors.New("550 directory not empty")
		}
	}
	delete(s.entries, path)
	return nil
}

func (s *fakeStore) ModTime(path string) (time.Time, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.modTimeErr[path]; err != nil {
		return time.Time{}, err
	}

	entry, ok := s.entries[path]
	if !ok {
		return time.Time{}, errors.FileNotFound{Path: path}
	}
	return entry.modTime, nil
}

var _ remote.Storage = &fakeStore{}

// fakeLister lists the fake server's tree.
type fakeLister struct {
	store *fakeStore
}

func (l fakeLister) List(root string) (Snapshot, error) {
	l.store.lock.Lock()
	defer l.store.lock.Unlock()

	// Real backends fail to list a root that doesn't exist.
	if trimmed := strings.TrimRight(root, "/"); trimmed != "" {
		if entry, ok := l.store.entries[trimmed]; !ok || entry.kind != KindDirectory {
			return nil, errors.New("550 " + trimmed + ": no such directory")
		}
	}

	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	snapshot := NewSnapshot()
	for path, entry := range l.store.entries {
		if !strings.HasPrefix(path, root) {
			continue
		}

		kind := entry.kind
		if !l.store.reportKinds {
			kind = KindUnknown
		}
		snapshot.Add(path, kind)
	}
	return snapshot, nil
}

// snapshotOf drops the injected-error bookkeeping and returns the server's
// current tree for assertions.
func (s *fakeStore) snapshot() Snapshot {
	snapshot, _ := fakeLister{store: s}.List("/")
	return snapshot
}

package sync

import (
	"context"
	"path/filepath"
	goSync "sync"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/pathmap"
	"github.com/treesync-io/treesync/pkg/remote"
)

// defaultWorkers is the number of parallel data connections used for
// uploads and downloads when the caller doesn't choose one.
const defaultWorkers = 8

// Executor applies planned operations through a remote storage backend. It
// never retries: failures are recorded in the phase's Outcome, and
// re-running the engine is the intended recovery path.
type Executor struct {
	store   remote.Storage
	workers int
}

// NewExecutor creates an Executor over the given backend.
func NewExecutor(store remote.Storage, workers int) *Executor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Executor{store: store, workers: workers}
}

// Push uploads the given Push/Update operations, mapping each local path to
// its remote counterpart. Transfers run in parallel since they're
// independent; EnsurePath is idempotent so concurrent creation of a shared
// parent is harmless. A single item's failure never aborts the batch.
func (e *Executor) Push(ctx context.Context, mapper *pathmap.Mapper,
	ops []Operation) Outcome {

	var outcome Outcome
	var lock goSync.Mutex

	workers := pool.New().WithMaxGoroutines(e.workers)
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}

		op := op
		workers.Go(func() {
			err := e.pushOne(mapper, op)

			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				log.WithError(err).WithField("path", op.Path).Error("Failed to transfer")
				outcome.failed(op.Path, err)
				return
			}
			outcome.succeeded(op.Path)
		})
	}
	workers.Wait()
	return outcome
}

func (e *Executor) pushOne(mapper *pathmap.Mapper, op Operation) error {
	remotePath, err := mapper.ToRemote(op.Path)
	if err != nil {
		return err
	}

	if op.Kind == KindDirectory {
		return errors.WithContext(e.store.EnsurePath(remotePath), "make directory")
	}

	// Several backends don't implicitly create parent directories on
	// upload.
	if err := e.store.EnsurePath(filepath.Dir(remotePath)); err != nil {
		return errors.WithContext(err, "make parent")
	}

	if err := e.store.Put(op.Path, remotePath); err != nil {
		return errors.WithContext(err, "put")
	}

	log.WithFields(log.Fields{
		"path": op.Path,
		"size": humanizeSize(op.Path),
	}).Info("Transferred file")
	return nil
}

// Remove deletes the given remote paths. Deletions share the control
// connection, so they run sequentially. When an entry's kind wasn't captured
// at listing time, a failed file delete is retried as a directory removal.
func (e *Executor) Remove(ctx context.Context, ops []Operation) Outcome {
	var outcome Outcome
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}

		if err := e.removeOne(op); err != nil {
			log.WithError(err).WithField("path", op.Path).Error("Failed to remove")
			outcome.failed(op.Path, err)
			continue
		}

		log.WithField("path", op.Path).Info("Removed remote path")
		outcome.succeeded(op.Path)
	}
	return outcome
}

func (e *Executor) removeOne(op Operation) error {
	switch op.Kind {
	case KindDirectory:
		return e.store.RemoveDirectory(op.Path)
	case KindFile:
		return e.store.Delete(op.Path)
	default:
		if err := e.store.Delete(op.Path); err != nil {
			return e.store.RemoveDirectory(op.Path)
		}
		return nil
	}
}

// Pull downloads the given remote paths to their local counterparts,
// creating missing local parent directories.
func (e *Executor) Pull(ctx context.Context, mapper *pathmap.Mapper,
	ops []Operation) Outcome {

	var outcome Outcome
	var lock goSync.Mutex

	workers := pool.New().WithMaxGoroutines(e.workers)
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}

		op := op
		workers.Go(func() {
			err := e.pullOne(mapper, op)

			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				log.WithError(err).WithField("path", op.Path).Error("Failed to restore")
				outcome.failed(op.Path, err)
				return
			}
			outcome.succeeded(op.Path)
		})
	}
	workers.Wait()
	return outcome
}

func (e *Executor) pullOne(mapper *pathmap.Mapper, op Operation) error {
	localPath, err := mapper.ToLocal(op.Path)
	if err != nil {
		return err
	}

	if op.Kind == KindDirectory {
		return errors.WithContext(fs.MkdirAll(localPath, 0755), "make directory")
	}

	if err := fs.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	if err := e.store.Get(op.Path, localPath); err != nil {
		return errors.WithContext(err, "get")
	}

	log.WithFields(log.Fields{
		"path": localPath,
		"size": humanizeSize(localPath),
	}).Info("Restored file")
	return nil
}

func humanizeSize(path string) string {
	fi, err := fs.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(fi.Size()))
}

package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/treesync-io/treesync/pkg/errors"
	"github.com/treesync-io/treesync/pkg/pathmap"
	"github.com/treesync-io/treesync/pkg/remote"
)

// Options tunes a Driver.
type Options struct {
	// PushOnUnknownTimestamp decides what the update pass does with a local
	// file whose remote counterpart has no usable modification time: true
	// treats it as never synced and re-pushes it, false skips it. True
	// matches the historical behavior of always re-pushing in this case,
	// at the cost of re-transferring files on backends that can't report
	// timestamps.
	PushOnUnknownTimestamp bool

	// Workers is the number of parallel data connections used for
	// transfers. Zero means the default.
	Workers int
}

// DefaultOptions are the options used by the CLI unless overridden.
var DefaultOptions = Options{PushOnUnknownTimestamp: true}

// Driver orchestrates the sync workflows over a single remote session. The
// session is exclusively owned by the driver for the duration of a run; the
// caller is responsible for connecting before the run and disconnecting
// after it, on every exit path.
type Driver struct {
	mapper       *pathmap.Mapper
	store        remote.Storage
	remoteLister Lister
	localLister  Lister
	exec         *Executor
	opts         Options
}

// NewDriver creates a Driver for the given backend and mapping.
func NewDriver(store remote.Storage, remoteLister Lister,
	mapper *pathmap.Mapper, opts Options) *Driver {

	return &Driver{
		mapper:       mapper,
		store:        store,
		remoteLister: remoteLister,
		localLister:  LocalLister{},
		exec:         NewExecutor(store, opts.Workers),
		opts:         opts,
	}
}

// Sync makes the remote tree mirror the local tree in three passes:
// additions, orphan removal, then staleness updates. Each pass plans against
// the remote state left behind by the previous one. Listing and mapping
// failures abort the run; per-item transfer failures are recorded in the
// Result and the run continues.
func (d *Driver) Sync(ctx context.Context) (Result, error) {
	result := Result{RunID: newRunID()}
	runLog := log.WithField("run", result.RunID)

	// A fresh server doesn't have the remote root yet, and listing a
	// missing directory is a fatal error on every backend. Create it first
	// so the first run against a new server works.
	if err := d.store.EnsurePath(d.mapper.RemoteRoot()); err != nil {
		return result, errors.WithContext(err, "create remote root")
	}

	local, remoteSnapshot, err := d.listBothSides()
	if err != nil {
		return result, err
	}

	// Pass 1: push local paths that don't exist remotely. Successful pushes
	// join the working remote snapshot so that the later passes observe
	// them.
	additions, err := planAdditions(local, remoteSnapshot, d.mapper)
	if err != nil {
		return result, err
	}

	runLog.WithField("count", len(additions)).Info("Transferring new files to server")
	result.Additions = d.exec.Push(ctx, d.mapper, additions)
	for _, path := range result.Additions.Succeeded {
		remotePath, err := d.mapper.ToRemote(path)
		if err != nil {
			return result, err
		}
		remoteSnapshot.Add(remotePath, local.Kind(path))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Pass 2: remove remote paths with no local counterpart.
	deletions, err := planDeletions(local, remoteSnapshot, d.mapper)
	if err != nil {
		return result, err
	}

	runLog.WithField("count", len(deletions)).Info("Removing deleted local files from server")
	result.Deletions = d.exec.Remove(ctx, deletions)
	for _, path := range result.Deletions.Succeeded {
		remoteSnapshot.Remove(path)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Pass 3: re-push local files that are newer than their remote
	// counterpart. The oracle is built over the post-removal remote state.
	oracle := buildOracle(remoteSnapshot, d.store)
	updates, err := planUpdates(local, d.localModTimes(local), oracle,
		d.mapper, d.opts.PushOnUnknownTimestamp)
	if err != nil {
		return result, err
	}

	runLog.WithField("count", len(updates)).Info("Copying updated local files to server")
	result.Updates = d.exec.Push(ctx, d.mapper, updates)

	runLog.WithFields(log.Fields{
		"transferred": result.Transferred(),
		"failed":      len(result.Failures()),
	}).Info("Files synchronized with server")
	return result, ctx.Err()
}

// Backup pushes every local path unconditionally, with no staleness check.
func (d *Driver) Backup(ctx context.Context) (Outcome, error) {
	local, err := d.localLister.List(d.mapper.LocalRoot())
	if err != nil {
		return Outcome{}, errors.ListingError{Side: "local", Err: err}
	}

	ops := make([]Operation, 0, len(local))
	for _, path := range local.sortedPaths() {
		ops = append(ops, Operation{Type: OpPush, Path: path, Kind: local.Kind(path)})
	}

	log.WithField("count", len(ops)).Info("Backing up local files to server")
	return d.exec.Push(ctx, d.mapper, ops), ctx.Err()
}

// Restore pulls every remote path down into the local tree.
func (d *Driver) Restore(ctx context.Context) (Outcome, error) {
	remoteSnapshot, err := d.remoteLister.List(d.mapper.RemoteRoot())
	if err != nil {
		return Outcome{}, errors.ListingError{Side: "remote", Err: err}
	}

	ops := make([]Operation, 0, len(remoteSnapshot))
	for _, path := range remoteSnapshot.sortedPaths() {
		ops = append(ops, Operation{
			Type: OpPull,
			Path: path,
			Kind: remoteSnapshot.Kind(path),
		})
	}

	log.WithField("count", len(ops)).Info("Restoring files from server")
	return d.exec.Pull(ctx, d.mapper, ops), ctx.Err()
}

func (d *Driver) listBothSides() (local, remoteSnapshot Snapshot, err error) {
	local, err = d.localLister.List(d.mapper.LocalRoot())
	if err != nil {
		return nil, nil, errors.ListingError{Side: "local", Err: err}
	}
	if len(local) == 0 {
		log.Info("Local directory is empty")
	}

	remoteSnapshot, err = d.remoteLister.List(d.mapper.RemoteRoot())
	if err != nil {
		return nil, nil, errors.ListingError{Side: "remote", Err: err}
	}
	if len(remoteSnapshot) == 0 {
		log.Info("Remote server directory is empty")
	}
	return local, remoteSnapshot, nil
}

// localModTimes stats every local file in the snapshot. Files that can't be
// statted are omitted, which the update planner treats the same as an
// unchanged file.
func (d *Driver) localModTimes(local Snapshot) map[string]time.Time {
	times := map[string]time.Time{}
	for path, kind := range local {
		if kind != KindFile {
			continue
		}

		fi, err := fs.Stat(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("Failed to stat local file")
			continue
		}
		times[path] = fi.ModTime()
	}
	return times
}

func newRunID() string {
	return uuid.New().String()[:8]
}

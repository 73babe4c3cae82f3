package sync

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/treesync-io/treesync/pkg/pathmap"
	"github.com/treesync-io/treesync/pkg/remote"
)

// ModTimeOracle maps remote paths to their modification times. Entries for
// which the backend couldn't report a timestamp are absent, not zero-filled.
type ModTimeOracle map[string]time.Time

// buildOracle queries the modification time of every entry in the remote
// snapshot. Failed queries are logged at debug level and omitted; whether an
// absent entry triggers a re-push is decided by the update planner's policy.
func buildOracle(remoteSnapshot Snapshot, store remote.Storage) ModTimeOracle {
	oracle := ModTimeOracle{}
	for _, path := range remoteSnapshot.sortedPaths() {
		modTime, err := store.ModTime(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug(
				"No usable modification time for remote path")
			continue
		}
		oracle[path] = modTime
	}
	return oracle
}

// planAdditions returns a Push operation for every local path whose mapping
// is absent from the remote snapshot.
func planAdditions(local, remoteSnapshot Snapshot, mapper *pathmap.Mapper) (
	[]Operation, error) {

	var ops []Operation
	for _, path := range local.sortedPaths() {
		remotePath, err := mapper.ToRemote(path)
		if err != nil {
			return nil, err
		}

		if !remoteSnapshot.Contains(remotePath) {
			ops = append(ops, Operation{Type: OpPush, Path: path, Kind: local.Kind(path)})
		}
	}
	return ops, nil
}

// planDeletions returns a Delete operation for every remote path whose
// reverse mapping is absent from the local snapshot. A remote path is never
// deleted while its local counterpart exists.
func planDeletions(local, remoteSnapshot Snapshot, mapper *pathmap.Mapper) (
	[]Operation, error) {

	mappedLocal := mapset.NewSetWithSize[string](len(local))
	for path := range local {
		remotePath, err := mapper.ToRemote(path)
		if err != nil {
			return nil, err
		}
		mappedLocal.Add(remotePath)
	}

	// Children sort before their parents so that each directory is already
	// empty by the time its removal runs.
	orphans := remoteSnapshot.Paths().Difference(mappedLocal).ToSlice()
	sort.Sort(sort.Reverse(sort.StringSlice(orphans)))

	ops := make([]Operation, 0, len(orphans))
	for _, path := range orphans {
		ops = append(ops, Operation{
			Type: OpDelete,
			Path: path,
			Kind: remoteSnapshot.Kind(path),
		})
	}
	return ops, nil
}

// planUpdates returns an Update operation for every local file that's
// strictly newer than the oracle's entry for its mapping. Directories are
// never updated.
//
// When the oracle has no entry for the mapped path, `pushOnUnknown` decides:
// true treats the file as never synced and re-pushes it, false skips it.
func planUpdates(local Snapshot, localTimes map[string]time.Time,
	oracle ModTimeOracle, mapper *pathmap.Mapper, pushOnUnknown bool) (
	[]Operation, error) {

	var ops []Operation
	for _, path := range local.sortedPaths() {
		if local.Kind(path) != KindFile {
			continue
		}

		remotePath, err := mapper.ToRemote(path)
		if err != nil {
			return nil, err
		}

		remoteTime, ok := oracle[remotePath]
		if !ok {
			if pushOnUnknown {
				ops = append(ops, Operation{Type: OpUpdate, Path: path, Kind: KindFile})
			}
			continue
		}

		// FTP modification times only have second resolution, so truncate
		// the local time before comparing to avoid perpetual re-pushes.
		if localTimes[path].Truncate(time.Second).After(remoteTime) {
			ops = append(ops, Operation{Type: OpUpdate, Path: path, Kind: KindFile})
		}
	}
	return ops, nil
}

/*
Package sync implements the tree synchronization engine. It makes a remote
directory tree mirror (or restore) a local one through a pluggable storage
backend.

A full sync is three ordered passes, each planned against the state left
behind by the previous one:

1) Additions -- local paths with no remote counterpart are pushed.
2) Orphan removal -- remote paths with no local counterpart are deleted.
3) Staleness updates -- local files newer than their remote counterpart
   (per the modification-time oracle) are pushed again.

Every run recomputes the plan from a fresh pair of tree listings; no state is
persisted between runs. This makes a run naturally idempotent: re-running
after a partial failure transfers only what's still missing or stale.

Per-item transfer failures are recorded and skipped; only connectivity,
listing, and path-mapping failures abort a run.
*/
package sync

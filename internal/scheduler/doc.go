// Package scheduler drives bulk conversions against the execution backend.
//
// Three cooperating pieces share one state lock: the coordinator admits batch
// submissions under a concurrency ceiling with pacing between bursts, the
// reconciler folds the backend's status stream into per-file state with
// in-flight-set membership as the idempotence key, and the facade exposes
// convert, cancel, and snapshot operations to the CLI. Snapshots are
// debounced and coalesced; consumers always see the latest state rather than
// an event backlog.
package scheduler

// Package backend defines the job execution service the scheduler drives:
// idempotent submission keyed by file identity, an asynchronous status event
// stream, per-tag admission counts, and cancel-by-tag. The Pool implementation
// runs conversions on an in-process worker set backed by the encoder client;
// the Service interface keeps the scheduler agnostic to that choice.
package backend

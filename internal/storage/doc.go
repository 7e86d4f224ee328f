// Package storage provides the optional notification history journal.
//
// The journal is an append-only audit of notifications that were
// actually presented. It is never read back into the delivery
// pipeline; the core stays a non-durable, in-process coordinator.
package storage

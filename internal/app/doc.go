// Package app provides the board synchronization engine.
//
// Decide aggregates reaction tallies into a publish decision. Synchronizer applies one
// reaction snapshot to the board (create or edit) while keeping the reference-to-entry
// mapping one-to-one. Dispatcher feeds snapshots from a bounded queue to a worker pool.
// Depends on domain interfaces, not concrete implementations.
package app

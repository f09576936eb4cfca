package review

// Package review implements the session lifecycle around the analysis
// engine.
//
// Overview
// The Service owns the two registries (sessions, results) and a bounded
// pool of runner goroutines fed by a queue. Submit validates the batch,
// allocates a session and enqueues it; the caller gets the session id
// back immediately and polls Status until a terminal state.
//
// One runner drives one session:
//
//   Submit -> queue -> runner          Analyzer
//     |                  |                |
//     |                  | RunPhase(0..n) |
//     |                  |<-- err? ------>| err => session failed
//     |                  | UpdateProgress |   (progress written strictly
//     |                  |                |    after the phase finished)
//     |                  | Result() ----->|
//     |                  | results.Put    |
//     |                  | session done   |
//
// Invariants:
//   - Exactly one runner mutates a given session; pollers only read
//     snapshots.
//   - Progress is monotone and never overstates finished work.
//   - A result is stored if and only if the session completed; a failed
//     session never leaves a partial result behind.
//   - Runner failures (including panics in the Analyzer) terminate the
//     session, never the process.
//
// internal/review/service_test.go shows the intended usage end to end.

// Package state publishes read-only session snapshots for readers that run
// outside the device loop.
//
// # Overview
//
// The device loop is the only writer of the session and the page cache. The
// HTTP status server, the simulator UI and the MQTT publisher all run on their
// own goroutines and must never touch the live session. After every transition
// the loop copies the session into a Store; readers take Snapshots on their own
// schedule.
//
//	Writer (device loop):          Readers:
//	┌──────────────────┐          ┌──────────────────┐
//	│ navigate / event │          │ GET /status      │
//	│       ↓          │          │ simulator tick   │
//	│ store.Update()   │─────────→│ store.Snapshot() │
//	└──────────────────┘  (mutex) └──────────────────┘
//
// # Update Semantics
//
//	// Success: replace the published session
//	store.Update(&sess, cache.Len(), nil)
//
//	// Failure: keep the last session, record the error
//	store.Update(nil, 0, err)
//
// ConsecutiveFailures counts failed operations since the last success; the
// status display treats two or more as offline, as it does a dropped push
// channel.
//
// # Testing Considerations
//
// The zero Store is ready to use and Snapshot returns a zero Snapshot until the
// first Update.
package state

// Package pager holds the domain vocabulary shared by the reader's components:
// navigation directions, page artifacts, range checks and the error taxonomy.
//
// # Errors
//
// Every failure surfaced by the core is one of three kinds:
//
//   - Storage: open/read/write failures on the state file or page storage
//   - Network: fetch failures and unexpected HTTP status codes
//   - Protocol: malformed or out-of-range push events
//
// Errors carry the operation that failed and wrap the underlying cause, so
// callers can use errors.Is / errors.As as well as the IsStorage, IsNetwork
// and IsProtocol helpers. None of them is fatal to the device loop.
package pager

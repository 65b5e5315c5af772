// Package nav is the navigation controller: it turns button presses and push
// events into session transitions and render requests.
//
// Every entry point runs on the device loop and completes before the next one
// starts, so the controller holds no locks. It reads and writes the session it
// was given, consults the page cache before downloading, persists the page
// position after every successful change, and publishes a snapshot to the
// status store once a transition is complete.
//
// Failure policy: a failed download aborts the navigation and leaves the
// current page in place with an error indicator on the panel. A failed state
// save is logged and reported through the status store; the in-memory session
// stays authoritative. Out-of-range targets are rejected with
// pager.ErrOutOfRange before anything is touched.
package nav

// Package input turns raw button samples into discrete press events.
//
// A Source reports which of the three buttons is held right now. The device
// loop samples it once per tick and feeds the sample to a Debouncer, which
// emits at most one press per physical press and swallows presses that start
// inside the cooldown window after a release.
package input

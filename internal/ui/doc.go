// Package ui is a terminal simulator for the reader.
//
// The simulator stands in for the e-paper panel and its three buttons during
// development. A Sink plugged into the render fan-out remembers the latest page
// request and overlay; the Bubble Tea model polls it together with the
// state.Store snapshot and draws the page, the navigation column and the link
// flags. Key presses become one-sample button taps on a manual input source, so
// they travel through the same debouncer as the hardware buttons.
//
// Keys: h/← previous page, space/enter queue, l/→ next page, T theme, ? help,
// q quit.
package ui

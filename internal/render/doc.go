// Package render composes page frames for the e-paper panel and fans render
// requests out to the configured sinks.
//
// The Compositor decodes a page artifact, scales it onto the panel, draws the
// status bar and, when navigation chrome is shown, the three-slot button
// column along the left edge (previous, queue, next). Indicators overlay the
// last shown frame: a busy hourglass on one slot, an error line, or a
// refreshed connection status. Frames are quantized to the panel's color
// depth; a 1-bit panel gets Floyd-Steinberg dithering.
//
// Server exposes the last frame and the status snapshot over HTTP and lets a
// browser tap the buttons.
package render

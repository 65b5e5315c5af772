// Package logtail reads the end of the reader's log file for display.
//
// # Overview
//
// In simulator mode the terminal belongs to the UI, so the device logs go to
// <storage_dir>/inkreader.log. The simulator shows the newest lines of that
// file under the simulated panel.
//
// # Reading Log Files
//
// Read uses a ring buffer to extract the last maxLines from a file in one
// sequential pass, using O(maxLines) memory regardless of file size:
//
//	lines, err := logtail.Read(afero.NewOsFs(), "/home/pi/.local/share/inkreader/inkreader.log", 8)
//
// A missing file is not an error; it yields no lines.
//
// # Parsing
//
// Parse splits a line produced by slog's text handler into its level, message
// and remaining attributes so the UI can colour by level:
//
//	time=... level=WARN msg="nav: page download failed" page=3
//	  -> Entry{Level: "WARN", Message: "nav: page download failed", Attrs: "page=3"}
package logtail

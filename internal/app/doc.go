// Package app is the composition root of the reader.
//
// # Overview
//
// Run loads the configuration, restores the persisted session and wires every
// component around a single device loop:
//
//  1. Load ~/.config/inkreader/config.toml and apply flag/env overrides
//  2. Resolve the device id (configured, remembered, or freshly generated)
//  3. Restore page index and page count from the state file; volatile fields
//     start from defaults
//  4. Build the download client, the page cache, the push channel transport,
//     the button source, the render sinks and the navigation controller
//  5. Optionally start the HTTP status server, the MQTT publisher and the
//     network probe
//  6. Show the current page, start the push channel and run the loop
//
// # Device Loop
//
//	┌───────────────────────────────────────────┐
//	│ Loop.Step() every tick (default 20ms)     │
//	│  ├─> buttons.Sample() -> Debouncer.Step() │
//	│  │     └─> Controller.HandlePress()       │
//	│  ├─> transport.Poll()   (one event)       │
//	│  │     └─> Dispatcher.Dispatch()          │
//	│  ├─> prober.Poll()      (latest link)     │
//	│  │     └─> Controller.SetNetworkLink()    │
//	│  └─> Controller.Tick()  (chrome timeout)  │
//	└───────────────────────────────────────────┘
//
// The loop goroutine is the only writer of the session and the page cache.
// Background goroutines (websocket reader, evdev reader, probe, HTTP server,
// MQTT publisher, simulator UI) exchange data with it through queues, the
// manual tap source and state.Store snapshots.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file unparseable or invalid
//   - Storage directory unusable
//   - Input device cannot be opened
//   - Status server fails to listen
//
// Recoverable errors (logged, the loop continues):
//   - Corrupt or unreadable state file (fresh session)
//   - Download, channel and render failures during navigation
//   - Malformed push channel events
//
// # Simulator Mode
//
// With Options.Simulate the button backend is forced to manual and the
// terminal simulator from package ui runs alongside the loop; quitting the
// simulator stops the reader.
package app

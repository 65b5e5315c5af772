// Package realtime adapts the push channel to the navigation controller.
//
// Inbound traffic is a closed set of Event variants handed to a Handler by
// Dispatcher.Dispatch. Outbound traffic is a closed set of Intent variants sent
// fire-and-forget through a Sender. The websocket Transport speaks the
// socket.io v4 text protocol: engine.io frames wrapping event packets of the
// form ["name", payload]. It synthesizes Connected and Disconnected events
// around the namespace handshake, queues decoded events for the device loop to
// Poll, and reconnects with capped exponential backoff.
//
// Reconnection is the only reliability mechanism; intents sent while the link
// is down fail immediately with a network error.
package realtime

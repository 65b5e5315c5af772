// Package telemetry watches the network link and publishes device status.
//
// The Prober pings a host in the background and hands link changes to the
// device loop through Poll. The Publisher pushes a retained msgpack snapshot
// of the status store to an MQTT broker whenever the loop signals a finished
// transition.
package telemetry

// Package nats provides an embedded NATS server and a control transport for
// the light engine.
//
// # Architecture
//
//   - Server: embedded NATS server running inside lightnode
//   - Bridge: turns control messages into heart directives and mirrors
//     cursor and device state events onto NATS
//   - ControlClient: request/reply sender used by "lightnode send"
//
// # Subjects
//
//	lightnode.control.directive   # control messages (client → engine), replied with an Ack
//	lightnode.events.cursor       # CursorStateEvent JSON (engine → subscribers)
//	lightnode.events.device       # DeviceStateEvent JSON (engine → subscribers)
//
// Messaging is core NATS only. A directive that does not fit in the mailbox is
// rejected in the Ack rather than queued.
//
// # Debugging with nats CLI
//
// Watch everything the engine publishes:
//
//	nats sub "lightnode.>"
//
// Load a pattern by hand:
//
//	nats req lightnode.control.directive '{"action":"load","pattern":"rainbow.txt"}'
//
// Show a basic color, holding the animation:
//
//	nats req lightnode.control.directive '{"action":"color","color":"red"}'
//
// # Message Formats
//
// ControlMessage:
//
//	{
//	  "action": "load",            // on, off, load, color, reconnect
//	  "pattern": "rainbow.txt",    // load only
//	  "color": "red",              // color only: red, green, blue
//	  "timestamp": "2024-01-01T12:00:00Z",
//	  "reason": "manual"
//	}
//
// Ack:
//
//	{"ok": true, "directive": "load(rainbow.txt)"}
package nats

// Package mqtt implements an embeddable MQTT v3.1.1/v5 client engine for
// memory-constrained programs.
//
// The package is built around a fixed-allocation discipline: buffers,
// decoders, topic registries and publish outboxes are sized at construction
// and never grow. Decoded packets borrow from the receive buffer, encoding
// writes directly into a caller buffer using a reserve-then-compact scheme,
// and the hot path performs no per-packet heap allocation.
//
// Three layers build on each other and each is usable alone:
//
//   - the wire codec: Encode methods on the packet structs and the stateful
//     Decoder, operating on plain byte slices;
//   - the session engine: Client, a synchronous connect/subscribe/publish
//     state machine over a Transport;
//   - the module runtime: Runtime, a single-goroutine event loop that
//     drives application Modules with per-module tick scheduling and
//     message dispatch.
//
// QoS0 and QoS1 are fully supported. QoS2 packets encode and decode but the
// exactly-once handshake is not implemented; Client.Publish refuses QoS2
// with ErrExactlyOnceUnsupported.
package mqtt

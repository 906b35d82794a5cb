// Package server is the WebSocket transport for the room chat service.
//
// It upgrades HTTP requests to WebSocket connections, binds each connection to
// a chat session, pumps inbound text frames into the chat dispatcher and
// outbound payloads back to the peer. The implementation is organized into
// files for configuration, hub management, clients, routing, and HTTP
// handlers.
package server

/*
Package domain contains the value types shared by every layer of the davinci
engine.

It defines the wire-neutral Request and Response exchanged with the Transport,
the authenticated User handle, the error taxonomy and the lifecycle events.
This package is kept free of I/O and of the collector/node machinery so that
adapters and plugins can depend on it without import cycles.

# Error Taxonomy

  - TransportError: connectivity failure, retryable.
  - ProtocolError: response could not be classified, fatal to the attempt.
  - FlowError / FlowFailure: server declared outcomes carried by nodes.
*/
package domain

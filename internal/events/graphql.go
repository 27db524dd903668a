package events

import "time"

// GraphQLSubscribe is emitted when an operation begins executing, the
// reactive analog of "request start": it covers the whole lifetime of the
// response stream, not just a single round trip.
type GraphQLSubscribe struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLSnapshot is emitted every time the response stream produces a new
// ResponseSnapshot.
type GraphQLSnapshot struct {
	OperationName string
	ErrorCount    int
	Elapsed       time.Duration
}

// GraphQLUnsubscribe is emitted when the response stream completes, errors
// fatally, or the caller cancels its context.
type GraphQLUnsubscribe struct {
	Query         string
	OperationName string
	OperationType string
	SnapshotCount int
	Duration      time.Duration
}

package session

import "fmt"

// TransportErr wraps a failure dialing or writing to the relay connection.
type TransportErr struct {
	Op  string
	Err error
}

func (e *TransportErr) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportErr) Unwrap() error { return e.Err }

// ProtocolErr wraps a failure of the handshake or wire-framing contract.
type ProtocolErr struct {
	Op  string
	Err error
}

func (e *ProtocolErr) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Op, e.Err)
}

func (e *ProtocolErr) Unwrap() error { return e.Err }

package snmp

import "fmt"

// TransportError wraps a timeout or connection-level failure talking to the
// agent. Distinguished from UnsupportedTableError so callers can tell "the
// device did not answer" apart from "the device answered but does not
// implement this table".
type TransportError struct {
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmp transport failure on %s: %v", e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports a scalar OID the agent does not hold.
type NotFoundError struct {
	OID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such object: %s", e.OID)
}

// UnsupportedTableError reports a table walk that returned no rows: the
// agent responded but does not implement the table.
type UnsupportedTableError struct {
	OID string
}

func (e *UnsupportedTableError) Error() string {
	return fmt.Sprintf("table not implemented on target: %s", e.OID)
}

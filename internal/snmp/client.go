package snmp

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Datum is one row of a table walk: the row index (OID suffix relative to
// the walked column) and the rendered value. Collectors walking different
// columns of the same table produce identical Index strings, which is what
// makes cross-table joins by index work.
type Datum struct {
	Index string
	Value string
}

// Agent is the capability the discovery core consumes: a scalar fetch and a
// bounded table walk. The production implementation is *Client; tests
// substitute an in-memory fake.
type Agent interface {
	Get(oid string) (string, error)
	Walk(root string) ([]Datum, error)
}

// Client is an SNMP v2c session against a single agent.
type Client struct {
	Target         string
	Port           uint16
	Community      string
	Timeout        time.Duration
	Retries        int
	MaxRepetitions uint32

	conn *gosnmp.GoSNMP
}

// Option adjusts client transport parameters before dialing.
type Option func(*Client)

// WithTimeout overrides the per-request timeout; non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithRetries overrides the retransmit count; negative values keep the
// default.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.Retries = n
		}
	}
}

// Dial opens a v2c session. The returned client owns its transport handle
// and is not safe for concurrent use; each discovery session dials its own.
func Dial(target string, port uint16, community string, opts ...Option) (*Client, error) {
	c := &Client{
		Target:         target,
		Port:           port,
		Community:      community,
		Timeout:        5 * time.Second,
		Retries:        1,
		MaxRepetitions: 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Port == 0 {
		c.Port = 161
	}
	if c.Community == "" {
		c.Community = "public"
	}

	c.conn = &gosnmp.GoSNMP{
		Target:         c.Target,
		Port:           c.Port,
		Community:      c.Community,
		Version:        gosnmp.Version2c,
		Timeout:        c.Timeout,
		Retries:        c.Retries,
		MaxRepetitions: c.MaxRepetitions,
	}
	if err := c.conn.Connect(); err != nil {
		return nil, &TransportError{Target: c.Target, Err: err}
	}
	return c, nil
}

// Close releases the session's UDP socket.
func (c *Client) Close() error {
	if c.conn != nil && c.conn.Conn != nil {
		return c.conn.Conn.Close()
	}
	return nil
}

// Get fetches a single scalar. An agent that answers but does not hold the
// OID yields a NotFoundError; no answer at all yields a TransportError.
func (c *Client) Get(oid string) (string, error) {
	if c.conn == nil {
		return "", &TransportError{Target: c.Target, Err: fmt.Errorf("not connected")}
	}
	pkt, err := c.conn.Get([]string{oid})
	if err != nil {
		return "", &TransportError{Target: c.Target, Err: err}
	}
	if len(pkt.Variables) == 0 {
		return "", &NotFoundError{OID: oid}
	}
	pdu := pkt.Variables[0]
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
		return "", &NotFoundError{OID: oid}
	}
	return renderValue(pdu), nil
}

// Walk bulk-walks one table column. gosnmp's BulkWalk stops at the subtree
// boundary, so rows never run past the end of the table. A walk that yields
// zero rows reports UnsupportedTableError so callers can trigger fallbacks.
func (c *Client) Walk(root string) ([]Datum, error) {
	if c.conn == nil {
		return nil, &TransportError{Target: c.Target, Err: fmt.Errorf("not connected")}
	}
	var out []Datum
	err := c.conn.BulkWalk(root, func(pdu gosnmp.SnmpPDU) error {
		switch pdu.Type {
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
			return nil
		}
		out = append(out, Datum{Index: relativeIndex(root, pdu.Name), Value: renderValue(pdu)})
		return nil
	})
	if err != nil {
		return nil, &TransportError{Target: c.Target, Err: err}
	}
	if len(out) == 0 {
		return nil, &UnsupportedTableError{OID: root}
	}
	return out, nil
}

// relativeIndex strips the walked column root from a response OID, leaving
// the table's natural per-row index. "1.3.6.1.2.1.2.2.1.2.530" walked at
// ifDescr becomes "530"; an ipAddressTable response keeps its full
// multi-part suffix.
func relativeIndex(root, name string) string {
	r := strings.TrimPrefix(root, ".")
	n := strings.TrimPrefix(name, ".")
	if rest, ok := strings.CutPrefix(n, r+"."); ok {
		return rest
	}
	// Response outside the requested subtree; keep it keyed by full OID so
	// the anomaly is visible downstream instead of colliding on "".
	return n
}

// renderValue turns a PDU into the string form the reconciler works with.
func renderValue(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return fmt.Sprintf("%v", pdu.Value)
		}
		if printable(b) {
			return string(b)
		}
		// Binary payloads (ifPhysAddress and friends) render as colon hex.
		return hexColon(b)
	case gosnmp.IPAddress:
		if b, ok := pdu.Value.([]byte); ok && len(b) == 4 {
			return net.IP(b).String()
		}
		return fmt.Sprintf("%v", pdu.Value)
	case gosnmp.ObjectIdentifier:
		return fmt.Sprintf("%v", pdu.Value)
	default:
		if s, ok := pdu.Value.(string); ok {
			return s
		}
		if b, ok := pdu.Value.([]byte); ok {
			return string(b)
		}
		return fmt.Sprintf("%v", pdu.Value)
	}
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
		if c > 0x7e {
			return false
		}
	}
	return true
}

func hexColon(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02x", c)
	}
	return strings.Join(parts, ":")
}

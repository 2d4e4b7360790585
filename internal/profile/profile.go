// Package profile implements the per-device MIB-capability profiles: a
// generic MIB-II device plus vendor variants whose firmware needs a
// different query set. Profiles are selected by sysObjectID (see
// internal/classify) and polled through the snmp.Agent capability.
package profile

import (
	"sync"

	"go.uber.org/zap"

	"netscribe/internal/reconcile"
	"netscribe/internal/snmp"
)

// Kind is the fixed set of profile variants. Dispatch is by this tag plus
// the per-kind attribute set, not by type hierarchy.
type Kind string

const (
	// KindMIB2 is the generic profile for any device conforming to MIB-II.
	KindMIB2 Kind = "mib2"
	// KindBrocade covers Brocade/Foundry Ironware devices, whose firmware
	// returns malformed data for ifAlias; the attribute is dropped from
	// the query set outright rather than queried and discarded.
	KindBrocade Kind = "brocade"
)

// Profile is the capability set every device variant implements. All
// methods memoize: the device is polled at most once per capability per
// session, and repeated calls return the cached result.
type Profile interface {
	Kind() Kind
	Identify() (SystemIdentity, error)
	Interfaces() (map[string]*InterfaceRecord, error)
	Addresses() ([]AddressRecord, error)
	Stack() (*reconcile.Node, error)
	Discover() (*DeviceAggregate, error)
}

// ifAttr binds an interface-table attribute name to its column OID.
type ifAttr struct {
	name string
	oid  string
}

var mib2IfAttrs = []ifAttr{
	// ifTable
	{"ifDescr", snmp.OIDIfDescr},
	{"ifType", snmp.OIDIfType},
	{"ifSpeed", snmp.OIDIfSpeed},
	{"ifPhysAddress", snmp.OIDIfPhysAddress},
	// ifXTable
	{"ifName", snmp.OIDIfName},
	{"ifHighSpeed", snmp.OIDIfHighSpeed},
	{"ifAlias", snmp.OIDIfAlias},
}

// brocadeIfAttrs is mib2IfAttrs without ifAlias.
var brocadeIfAttrs = mib2IfAttrs[:len(mib2IfAttrs)-1]

// Option adjusts profile construction.
type Option func(*device)

// WithObjectID pre-seeds an already-fetched sysObjectID so identity
// collection does not refetch it. The classifier has usually fetched it
// before the profile exists.
func WithObjectID(oid string) Option {
	return func(d *device) { d.seedObjectID = oid }
}

// New builds the profile variant for kind over the given agent. The logger
// is an explicit handle; nil means no logging.
func New(kind Kind, agent snmp.Agent, log *zap.Logger, opts ...Option) Profile {
	if log == nil {
		log = zap.NewNop()
	}
	d := &device{
		kind:    kind,
		agent:   agent,
		log:     log,
		ifAttrs: mib2IfAttrs,
	}
	if kind == KindBrocade {
		d.ifAttrs = brocadeIfAttrs
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// device carries the session state for one target: the agent handle, the
// kind-specific query set, and one lazy-once cell per discovered facet.
// Sessions are not meant to be shared, but memoization still follows a
// single acquire-compute-store discipline under mu so a shared session can
// never double-poll.
type device struct {
	kind         Kind
	agent        snmp.Agent
	log          *zap.Logger
	ifAttrs      []ifAttr
	seedObjectID string

	mu           sync.Mutex
	identity     *SystemIdentity
	ifaces       map[string]*InterfaceRecord
	ifaceDegrade []string
	addrs        []AddressRecord
	addrsDone    bool
	stack        *reconcile.Node
	stackDone    bool

	// discoverMu serializes the full-aggregate build so the cache is
	// written at most once; it is never held while mu is, only before.
	discoverMu sync.Mutex
	agg        *DeviceAggregate
}

func (d *device) Kind() Kind { return d.kind }

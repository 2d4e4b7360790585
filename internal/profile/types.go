package profile

import (
	"fmt"

	"netscribe/internal/reconcile"
)

// SystemIdentity is the device's scalar identity. Fetched at most once per
// session; immutable once built.
type SystemIdentity struct {
	Name        string `json:"sysName"`
	Description string `json:"sysDescr"`
	ObjectID    string `json:"sysObjectID"`
	Location    string `json:"sysLocation"`
}

// speedSaturated is the 32-bit ifSpeed sentinel: the real speed does not
// fit and ifHighSpeed must be consulted instead.
const speedSaturated = 4294967295

// InterfaceRecord is one reconciled row of the interface tables. A row
// missing from one attribute walk simply leaves that field at its zero
// value; Index is stable within a polling session only.
type InterfaceRecord struct {
	Index       string          `json:"ifIndex"`
	Descr       string          `json:"ifDescr,omitempty"`
	Type        int             `json:"ifType,omitempty"`
	Speed       uint64          `json:"ifSpeed,omitempty"`
	HighSpeed   uint64          `json:"ifHighSpeed,omitempty"`
	PhysAddress string          `json:"ifPhysAddress,omitempty"`
	Name        string          `json:"ifName,omitempty"`
	Alias       string          `json:"ifAlias,omitempty"`
	Addresses   []AddressRecord `json:"addresses,omitempty"`
}

// SpeedBits resolves the interface speed in bits per second, preferring
// ifHighSpeed (units of 1,000,000 bit/s) when the 32-bit gauge is
// saturated.
func (r *InterfaceRecord) SpeedBits() uint64 {
	if r.Speed == speedSaturated && r.HighSpeed > 0 {
		return r.HighSpeed * 1_000_000
	}
	return r.Speed
}

// AddressRecord is one IP address bound to an interface. Address, prefix
// and protocol stay separate fields; CIDR is derived so the encoding is
// reversible.
type AddressRecord struct {
	InterfaceIndex string `json:"ifIndex"`
	Protocol       string `json:"protocol"` // ipv4 | ipv6
	Address        string `json:"address"`
	PrefixLength   int    `json:"prefixLength"`
	Type           string `json:"addressType,omitempty"` // unicast | anycast | broadcast | unknown
}

func (a AddressRecord) CIDR() string {
	return fmt.Sprintf("%s/%d", a.Address, a.PrefixLength)
}

// DeviceAggregate is the final, serializable result of one discovery
// session. Stack is nil when the device does not implement ifStackTable;
// the key stays in the JSON so absence is explicit rather than silent.
type DeviceAggregate struct {
	Identity   SystemIdentity              `json:"system"`
	Vendor     string                      `json:"vendor,omitempty"`
	Interfaces map[string]*InterfaceRecord `json:"interfaces"`
	Stack      *reconcile.Node             `json:"ifStack"`
	Orphans    []AddressRecord             `json:"orphanAddresses,omitempty"`
	Errors     []string                    `json:"errors,omitempty"`
}

// OrphanReferenceError flags an address whose interface index matches no
// discovered interface. Orphans are reported on the aggregate, never
// silently dropped.
type OrphanReferenceError struct {
	Address AddressRecord
}

func (e *OrphanReferenceError) Error() string {
	return fmt.Sprintf("address %s references unknown interface index %s",
		e.Address.CIDR(), e.Address.InterfaceIndex)
}

package snmp

// Numeric OIDs for everything the discovery core collects. Scalars carry the
// trailing .0 instance; table columns are walked and keyed by their row index.

// SNMPv2-MIB system group (1.3.6.1.2.1.1).
const (
	OIDSysDescr    = ".1.3.6.1.2.1.1.1.0"
	OIDSysObjectID = ".1.3.6.1.2.1.1.2.0"
	OIDSysName     = ".1.3.6.1.2.1.1.5.0"
	OIDSysLocation = ".1.3.6.1.2.1.1.6.0"
)

// IF-MIB ifTable columns (1.3.6.1.2.1.2.2.1).
const (
	OIDIfDescr       = ".1.3.6.1.2.1.2.2.1.2"
	OIDIfType        = ".1.3.6.1.2.1.2.2.1.3"
	OIDIfSpeed       = ".1.3.6.1.2.1.2.2.1.5"
	OIDIfPhysAddress = ".1.3.6.1.2.1.2.2.1.6"
)

// IF-MIB ifXTable columns (1.3.6.1.2.1.31.1.1.1).
const (
	OIDIfName      = ".1.3.6.1.2.1.31.1.1.1.1"
	OIDIfHighSpeed = ".1.3.6.1.2.1.31.1.1.1.15"
	OIDIfAlias     = ".1.3.6.1.2.1.31.1.1.1.18"
)

// IF-MIB ifStackTable (1.3.6.1.2.1.31.2.1). The row index encodes the
// relationship itself: <higherLayerIfIndex>.<lowerLayerIfIndex>.
const OIDIfStackStatus = ".1.3.6.1.2.1.31.2.1.3"

// IP-MIB ipAddressTable columns (1.3.6.1.2.1.4.34.1). Protocol-agnostic,
// the preferred address table. The row index encodes the address:
// <addrType>.<addrLen>.<addr octets...>.
const (
	OIDIPAddressIfIndex = ".1.3.6.1.2.1.4.34.1.3"
	OIDIPAddressType    = ".1.3.6.1.2.1.4.34.1.4"
	OIDIPAddressPrefix  = ".1.3.6.1.2.1.4.34.1.5"
)

// IP-MIB ipAddrTable columns (1.3.6.1.2.1.4.20.1). Deprecated, IPv4-only,
// but still the only address table many devices implement. The row index
// is the dotted IPv4 address.
const (
	OIDIPAdEntAddr    = ".1.3.6.1.2.1.4.20.1.1"
	OIDIPAdEntIfIndex = ".1.3.6.1.2.1.4.20.1.2"
	OIDIPAdEntNetMask = ".1.3.6.1.2.1.4.20.1.3"
)

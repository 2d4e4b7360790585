package profile

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"netscribe/internal/reconcile"
	"netscribe/internal/snmp"
)

// Addresses returns the device's IP addresses, keyed to interfaces by
// ifIndex. The two address tables are mutually exclusive: the newer
// per-protocol ipAddressTable is preferred, and only when it yields zero
// rows is the deprecated IPv4-only ipAddrTable attempted. Both absent is
// not an error; the address list is just empty.
func (d *device) Addresses() ([]AddressRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addrsDone {
		return d.addrs, nil
	}

	recs, err := d.protocolTableAddresses()
	if err != nil {
		var unsup *snmp.UnsupportedTableError
		if !errors.As(err, &unsup) {
			return nil, fmt.Errorf("ipAddressTable: %w", err)
		}
		d.log.Debug("ipAddressTable empty, falling back to ipAddrTable")
		recs, err = d.legacyTableAddresses()
		if err != nil {
			if errors.As(err, &unsup) {
				d.log.Debug("ipAddrTable not implemented either; no addresses")
				d.addrsDone = true
				return nil, nil
			}
			return nil, fmt.Errorf("ipAddrTable: %w", err)
		}
	}

	d.addrs = recs
	d.addrsDone = true
	d.log.Debug("collected addresses", zap.Int("count", len(recs)))
	return d.addrs, nil
}

// protocolTableAddresses walks the per-protocol ipAddressTable. The row
// index encodes protocol and address; ipAddressIfIndex seeds the
// accumulator, prefix and type walks augment rows already seen.
func (d *device) protocolTableAddresses() ([]AddressRecord, error) {
	ifIndexRows, err := d.agent.Walk(snmp.OIDIPAddressIfIndex)
	if err != nil {
		return nil, err
	}

	type entry struct {
		rec AddressRecord
		ok  bool
	}
	acc := map[string]*entry{}
	var order []string
	for _, row := range ifIndexRows {
		proto, addr, err := parseInetAddressIndex(row.Index)
		if err != nil {
			d.log.Warn("unparseable ipAddressTable row, skipping",
				zap.String("index", row.Index), zap.Error(err))
			continue
		}
		acc[row.Index] = &entry{rec: AddressRecord{
			InterfaceIndex: row.Value,
			Protocol:       proto,
			Address:        addr,
		}, ok: true}
		order = append(order, row.Index)
	}

	if rows, err := d.agent.Walk(snmp.OIDIPAddressPrefix); err == nil {
		for _, row := range rows {
			e, ok := acc[row.Index]
			if !ok {
				continue
			}
			e.rec.PrefixLength = parsePrefixPointer(row.Value)
		}
	} else {
		d.logDegradedWalk("ipAddressPrefix", err)
	}
	if rows, err := d.agent.Walk(snmp.OIDIPAddressType); err == nil {
		for _, row := range rows {
			e, ok := acc[row.Index]
			if !ok {
				continue
			}
			e.rec.Type = addressTypeName(row.Value)
		}
	} else {
		d.logDegradedWalk("ipAddressType", err)
	}

	out := make([]AddressRecord, 0, len(order))
	for _, idx := range order {
		out = append(out, acc[idx].rec)
	}
	return out, nil
}

// legacyTableAddresses walks the deprecated ipAddrTable, converting each
// netmask to a prefix length for consistency with the newer table.
func (d *device) legacyTableAddresses() ([]AddressRecord, error) {
	addrRows, err := d.agent.Walk(snmp.OIDIPAdEntAddr)
	if err != nil {
		return nil, err
	}
	tables := map[string][]snmp.Datum{"addr": addrRows}
	if rows, err := d.agent.Walk(snmp.OIDIPAdEntIfIndex); err == nil {
		tables["ifIndex"] = rows
	} else {
		d.logDegradedWalk("ipAdEntIfIndex", err)
	}
	if rows, err := d.agent.Walk(snmp.OIDIPAdEntNetMask); err == nil {
		tables["netmask"] = rows
	} else {
		d.logDegradedWalk("ipAdEntNetMask", err)
	}

	merged := reconcile.MergeRows(tables)
	out := make([]AddressRecord, 0, len(merged))
	for _, row := range addrRows {
		attrs := merged[row.Index]
		out = append(out, AddressRecord{
			InterfaceIndex: attrs["ifIndex"],
			Protocol:       "ipv4",
			Address:        attrs["addr"],
			PrefixLength:   netmaskToPrefix(attrs["netmask"]),
			Type:           "unknown",
		})
	}
	return out, nil
}

// logDegradedWalk records a failed augmenting walk: the column's fields
// stay at their zero values. An unimplemented column is routine; a
// transport failure is worth a louder line.
func (d *device) logDegradedWalk(column string, err error) {
	var unsup *snmp.UnsupportedTableError
	if errors.As(err, &unsup) {
		d.log.Debug("address column not implemented", zap.String("column", column))
		return
	}
	d.log.Warn("address column walk failed",
		zap.String("column", column), zap.Error(err))
}

// parseInetAddressIndex decodes an ipAddressTable row index of the form
// <addrType>.<addrLen>.<octets...> into the protocol name and a textual
// address.
func parseInetAddressIndex(index string) (proto, addr string, err error) {
	parts := strings.Split(index, ".")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("index %q too short", index)
	}
	alen, err := strconv.Atoi(parts[1])
	if err != nil || len(parts)-2 < alen {
		return "", "", fmt.Errorf("bad address length in index %q", index)
	}
	octets := make([]byte, alen)
	for i := 0; i < alen; i++ {
		n, err := strconv.Atoi(parts[2+i])
		if err != nil || n < 0 || n > 255 {
			return "", "", fmt.Errorf("bad octet %q in index %q", parts[2+i], index)
		}
		octets[i] = byte(n)
	}

	switch parts[0] {
	case "1", "3": // ipv4, ipv4z (zone, if any, follows the 4 address octets)
		if alen < net.IPv4len {
			return "", "", fmt.Errorf("short ipv4 address in index %q", index)
		}
		return "ipv4", net.IP(octets[:net.IPv4len]).String(), nil
	case "2", "4": // ipv6, ipv6z
		if alen < net.IPv6len {
			return "", "", fmt.Errorf("short ipv6 address in index %q", index)
		}
		return "ipv6", net.IP(octets[:net.IPv6len]).String(), nil
	default:
		return "", "", fmt.Errorf("unsupported address type %q in index %q", parts[0], index)
	}
}

// parsePrefixPointer extracts the prefix length from an ipAddressPrefix
// value, which is a RowPointer OID whose final sub-identifier is the
// length. Agents without prefix information (Brocade Ironware among them)
// answer zeroDotZero instead of a row pointer; that normalizes to 0.
func parsePrefixPointer(v string) int {
	if v == "" || strings.HasSuffix(v, "zeroDotZero") {
		return 0
	}
	t := strings.Trim(v, ".")
	if t == "0.0" || t == "0" {
		return 0
	}
	last := t
	if i := strings.LastIndex(t, "."); i >= 0 {
		last = t[i+1:]
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0
	}
	return n
}

// addressTypeName maps the ipAddressType enum to its label; textual values
// pass through unchanged.
func addressTypeName(v string) string {
	switch v {
	case "1":
		return "unicast"
	case "2":
		return "anycast"
	case "3":
		return "broadcast"
	default:
		return v
	}
}

// netmaskToPrefix converts a dotted IPv4 netmask to its prefix length. A
// missing or unparseable mask yields 0.
func netmaskToPrefix(mask string) int {
	ip := net.ParseIP(mask)
	if ip == nil {
		return 0
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	ones, _ := net.IPMask(v4).Size()
	return ones
}

package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"netscribe/internal/reconcile"
	"netscribe/internal/snmp"
)

// Identify fetches the device's scalar identity. Any failure here is fatal
// to the session: without identity there is nothing to attach the rest of
// the discovery to.
func (d *device) Identify() (SystemIdentity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.identity != nil {
		return *d.identity, nil
	}

	descr, err := d.agent.Get(snmp.OIDSysDescr)
	if err != nil {
		return SystemIdentity{}, fmt.Errorf("sysDescr: %w", err)
	}
	name, err := d.agent.Get(snmp.OIDSysName)
	if err != nil {
		return SystemIdentity{}, fmt.Errorf("sysName: %w", err)
	}
	location, err := d.agent.Get(snmp.OIDSysLocation)
	if err != nil {
		return SystemIdentity{}, fmt.Errorf("sysLocation: %w", err)
	}
	objectID := d.seedObjectID
	if objectID == "" {
		objectID, err = d.agent.Get(snmp.OIDSysObjectID)
		if err != nil {
			return SystemIdentity{}, fmt.Errorf("sysObjectID: %w", err)
		}
	}

	d.identity = &SystemIdentity{
		Name:        name,
		Description: descr,
		ObjectID:    objectID,
		Location:    location,
	}
	d.log.Debug("identified device",
		zap.String("sysName", name),
		zap.String("sysObjectID", objectID))
	return *d.identity, nil
}

// Interfaces walks the kind's interface-attribute set and reconciles the
// rows into one record per index. The record set is the union of indices
// seen across any attribute; an attribute the device does not implement is
// skipped, and a transport failure on one attribute degrades that field
// rather than aborting, unless every walk failed.
func (d *device) Interfaces() (map[string]*InterfaceRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ifaces != nil {
		return d.ifaces, nil
	}

	tables := map[string][]snmp.Datum{}
	var firstTransport error
	var degraded []string
	for _, attr := range d.ifAttrs {
		rows, err := d.agent.Walk(attr.oid)
		if err != nil {
			var unsup *snmp.UnsupportedTableError
			if errors.As(err, &unsup) {
				d.log.Debug("interface attribute not implemented",
					zap.String("attribute", attr.name))
				continue
			}
			d.log.Warn("interface attribute walk failed",
				zap.String("attribute", attr.name), zap.Error(err))
			degraded = append(degraded, fmt.Sprintf("%s: %v", attr.name, err))
			if firstTransport == nil {
				firstTransport = err
			}
			continue
		}
		tables[attr.name] = rows
	}
	if len(tables) == 0 && firstTransport != nil {
		return nil, fmt.Errorf("interface tables: %w", firstTransport)
	}
	d.ifaceDegrade = degraded

	ifaces := map[string]*InterfaceRecord{}
	for index, attrs := range reconcile.MergeRows(tables) {
		rec := &InterfaceRecord{
			Index:       index,
			Descr:       attrs["ifDescr"],
			PhysAddress: attrs["ifPhysAddress"],
			Name:        attrs["ifName"],
			Alias:       attrs["ifAlias"],
		}
		rec.Type = d.parseInt(index, "ifType", attrs["ifType"])
		rec.Speed = d.parseUint(index, "ifSpeed", attrs["ifSpeed"])
		rec.HighSpeed = d.parseUint(index, "ifHighSpeed", attrs["ifHighSpeed"])
		ifaces[index] = rec
	}
	d.ifaces = ifaces
	d.log.Debug("reconciled interfaces", zap.Int("count", len(ifaces)))
	return d.ifaces, nil
}

// Stack walks ifStackTable and builds the nested parent/child interface
// tree. A device without the table yields a nil tree: explicitly absent,
// not an empty one.
func (d *device) Stack() (*reconcile.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stackDone {
		return d.stack, nil
	}

	rows, err := d.agent.Walk(snmp.OIDIfStackStatus)
	if err != nil {
		var unsup *snmp.UnsupportedTableError
		if errors.As(err, &unsup) {
			d.log.Debug("ifStackTable not implemented")
			d.stackDone = true
			return nil, nil
		}
		return nil, fmt.Errorf("ifStackTable: %w", err)
	}

	// The row index is <higher>.<lower>: the higher layer is the child in
	// our tree, the lower layer its parent. Rows with higher == 0 only say
	// "nothing runs on top of lower" and add no edge.
	parentByChild := map[string]string{}
	for _, row := range rows {
		higher, lower, ok := strings.Cut(row.Index, ".")
		if !ok {
			d.log.Warn("malformed ifStackTable index, skipping row",
				zap.String("index", row.Index))
			continue
		}
		if higher == reconcile.RootIndex {
			continue
		}
		parentByChild[higher] = lower
	}

	tree, err := reconcile.BuildTree(reconcile.InvertAdjacency(parentByChild), reconcile.RootIndex)
	if err != nil {
		return nil, err
	}
	d.stack = tree
	d.stackDone = true
	return d.stack, nil
}

// Discover runs the full session in order: identity, interfaces,
// addresses, stack tree, then cross-references addresses onto interfaces
// by index. Every step after identity degrades to an explicit absent
// marker plus an entry in the aggregate's error list instead of aborting.
// The aggregate holds its own copies of the interface records, so the
// memoized map stays unmodified and concurrent callers all receive the
// one cached aggregate.
func (d *device) Discover() (*DeviceAggregate, error) {
	d.discoverMu.Lock()
	defer d.discoverMu.Unlock()
	if d.agg != nil {
		return d.agg, nil
	}

	identity, err := d.Identify()
	if err != nil {
		return nil, err
	}

	agg := &DeviceAggregate{Identity: identity}

	ifaces, err := d.Interfaces()
	if err != nil {
		d.log.Error("interface discovery failed", zap.Error(err))
		agg.Errors = append(agg.Errors, fmt.Sprintf("interfaces: %v", err))
		ifaces = map[string]*InterfaceRecord{}
	} else {
		d.mu.Lock()
		for _, deg := range d.ifaceDegrade {
			agg.Errors = append(agg.Errors, "interfaces: "+deg)
		}
		d.mu.Unlock()
	}
	agg.Interfaces = make(map[string]*InterfaceRecord, len(ifaces))
	for index, rec := range ifaces {
		c := *rec
		agg.Interfaces[index] = &c
	}

	addrs, err := d.Addresses()
	if err != nil {
		d.log.Error("address discovery failed", zap.Error(err))
		agg.Errors = append(agg.Errors, fmt.Sprintf("addresses: %v", err))
	}
	for _, addr := range addrs {
		rec, ok := agg.Interfaces[addr.InterfaceIndex]
		if !ok {
			orphan := &OrphanReferenceError{Address: addr}
			d.log.Warn("orphaned address", zap.Error(orphan))
			agg.Orphans = append(agg.Orphans, addr)
			agg.Errors = append(agg.Errors, orphan.Error())
			continue
		}
		rec.Addresses = append(rec.Addresses, addr)
	}

	stack, err := d.Stack()
	if err != nil {
		d.log.Error("stack tree discovery failed", zap.Error(err))
		agg.Errors = append(agg.Errors, fmt.Sprintf("ifStack: %v", err))
	}
	agg.Stack = stack

	d.agg = agg
	return agg, nil
}

// parseInt and parseUint treat a malformed numeric cell as a row-level
// anomaly: logged, field left at zero, never fatal to the table.
func (d *device) parseInt(index, attr, v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		d.log.Warn("malformed numeric value",
			zap.String("ifIndex", index), zap.String("attribute", attr), zap.String("value", v))
		return 0
	}
	return n
}

func (d *device) parseUint(index, attr, v string) uint64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		d.log.Warn("malformed numeric value",
			zap.String("ifIndex", index), zap.String("attribute", attr), zap.String("value", v))
		return 0
	}
	return n
}

// Package classify maps a device's sysObjectID onto the MIB-capability
// profile that knows how to poll it. Vendor-specific patterns are checked
// before the generic fallback, so classification never fails: an unknown
// vendor is simply a well-behaved MIB-II device until proven otherwise.
package classify

import (
	"strings"

	"netscribe/internal/profile"
)

// pattern matches an enterprise OID prefix to a profile kind. Order
// matters: more specific prefixes sit earlier in the table.
type pattern struct {
	prefix string
	vendor string
	kind   profile.Kind
}

// Enterprise arcs under 1.3.6.1.4.1. Brocade devices answer from both the
// Foundry (1991) and Brocade Communications (1588) arcs depending on
// product line; both run Ironware firmware with the broken ifAlias.
var patterns = []pattern{
	{prefix: ".1.3.6.1.4.1.1991.", vendor: "brocade", kind: profile.KindBrocade},
	{prefix: ".1.3.6.1.4.1.1588.", vendor: "brocade", kind: profile.KindBrocade},
}

// SelectKind picks the profile kind and a human vendor label for a
// sysObjectID. Any identifier that matches no vendor pattern falls back to
// the generic MIB-II profile.
func SelectKind(sysObjectID string) (profile.Kind, string) {
	oid := normalizeObjectID(sysObjectID)
	for _, p := range patterns {
		if strings.HasPrefix(oid+".", p.prefix) || strings.HasPrefix(oid, p.prefix) {
			return p.kind, p.vendor
		}
	}
	return profile.KindMIB2, "generic"
}

// normalizeObjectID reduces the textual forms agents and MIB-aware tools
// emit ("1.3.6...", ".1.3.6...", "SNMPv2-SMI::enterprises.1991.1.3") to a
// dotted numeric OID with a leading dot.
func normalizeObjectID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if rest, ok := strings.CutPrefix(s, "enterprises."); ok {
		s = "1.3.6.1.4.1." + rest
	}
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	return s
}

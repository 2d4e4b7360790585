// Package report persists discovery output under a working directory:
// timestamped session folders holding the raw aggregates, plus a rolling
// inventory of every device seen across runs.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"netscribe/internal/discover"
)

type Store struct {
	path string
}

// NewStore resolves the working directory using priority:
// 1) explicit dir argument
// 2) ENV NETSCRIBE_WORKDIR
// 3) default OS path: $HOME/.local/share/netscribe (Linux),
//    ~/Library/Application Support/netscribe (macOS),
//    %LOCALAPPDATA%\netscribe (Windows)
func NewStore(dir string) *Store {
	return &Store{path: resolvePath(dir)}
}

func (s *Store) Path() string {
	return s.path
}

// EnsureStructure makes sure the root and required subdirs exist:
// sessions/YYYY-MM-DD_hhmmss_{id}/ and inventory/.
func (s *Store) EnsureStructure() error {
	if s.path == "" {
		return errors.New("workdir not set")
	}
	for _, d := range []string{"", "sessions", "inventory"} {
		if err := ensureDir(filepath.Join(s.path, d)); err != nil {
			return err
		}
	}
	return nil
}

type Session struct {
	Path string
}

// NewSession creates a timestamped folder under workdir/sessions and
// returns the session handle. The id suffix keeps two runs within the same
// second apart.
func (s *Store) NewSession(id string) (Session, error) {
	base := filepath.Join(s.path, "sessions")
	if err := ensureDir(base); err != nil {
		return Session{}, err
	}
	ts := time.Now().Format("2006-01-02_150405")
	if len(id) > 8 {
		id = id[:8]
	}
	dir := filepath.Join(base, fmt.Sprintf("%s_%s", ts, id))
	if err := ensureDir(dir); err != nil {
		return Session{}, err
	}
	return Session{Path: dir}, nil
}

// SaveJSON writes any payload as pretty JSON into given filename inside the
// session folder.
func (s *Store) SaveJSON(sess Session, filename string, v any) error {
	if strings.TrimSpace(sess.Path) == "" {
		return errors.New("empty session path")
	}
	if err := ensureDir(sess.Path); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(sess.Path, filename), b, 0o600)
}

// SaveResult writes one discovery result into the session folder, named
// after the target.
func (s *Store) SaveResult(sess Session, res *discover.Result) error {
	name := fmt.Sprintf("%s.json", sanitizeName(res.Target))
	return s.SaveJSON(sess, name, res)
}

// Inventory state persisted in workdir/inventory/devices.json.
type Inventory struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Devices   []InventoryDevice `json:"devices"`
}

type InventoryDevice struct {
	Target     string    `json:"target"`
	SysName    string    `json:"sysName,omitempty"`
	Vendor     string    `json:"vendor,omitempty"`
	ObjectID   string    `json:"sysObjectID,omitempty"`
	Interfaces int       `json:"interfaceCount"`
	Addresses  []string  `json:"addresses,omitempty"`
	LastSeen   time.Time `json:"lastSeen"`
	SeenCount  int       `json:"seenCount"`
}

func (s *Store) inventoryFilePath() string {
	return filepath.Join(s.path, "inventory", "devices.json")
}

func (s *Store) LoadInventory() (Inventory, error) {
	var inv Inventory
	b, err := os.ReadFile(s.inventoryFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return Inventory{}, nil
		}
		return Inventory{}, err
	}
	if err := json.Unmarshal(b, &inv); err != nil {
		return Inventory{}, err
	}
	return inv, nil
}

func (s *Store) SaveInventory(inv Inventory) error {
	if err := ensureDir(filepath.Dir(s.inventoryFilePath())); err != nil {
		return err
	}
	b, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.inventoryFilePath(), b, 0o600)
}

// MergeInventory upserts the results of one run into the rolling inventory.
// Devices are keyed by target address; repeat sightings bump SeenCount and
// refresh the descriptive fields.
func (s *Store) MergeInventory(results []*discover.Result, now time.Time) error {
	inv, err := s.LoadInventory()
	if err != nil {
		return err
	}

	idx := map[string]int{}
	for i, d := range inv.Devices {
		idx[d.Target] = i
	}

	for _, res := range results {
		if res == nil || res.Device == nil {
			continue
		}
		d := InventoryDevice{
			Target:     res.Target,
			SysName:    res.Device.Identity.Name,
			Vendor:     res.Device.Vendor,
			ObjectID:   res.Device.Identity.ObjectID,
			Interfaces: len(res.Device.Interfaces),
			LastSeen:   now,
			SeenCount:  1,
		}
		for _, iface := range res.Device.Interfaces {
			for _, a := range iface.Addresses {
				d.Addresses = append(d.Addresses, a.CIDR())
			}
		}
		sort.Strings(d.Addresses)
		if i, ok := idx[res.Target]; ok {
			ex := inv.Devices[i]
			if d.SysName != "" {
				ex.SysName = d.SysName
			}
			if d.Vendor != "" {
				ex.Vendor = d.Vendor
			}
			if d.ObjectID != "" {
				ex.ObjectID = d.ObjectID
			}
			ex.Interfaces = d.Interfaces
			if len(d.Addresses) > 0 {
				ex.Addresses = unionStrings(ex.Addresses, d.Addresses)
			}
			ex.LastSeen = now
			ex.SeenCount++
			inv.Devices[i] = ex
		} else {
			inv.Devices = append(inv.Devices, d)
			idx[res.Target] = len(inv.Devices) - 1
		}
	}

	inv.UpdatedAt = now
	return s.SaveInventory(inv)
}

func unionStrings(a, b []string) []string {
	m := map[string]struct{}{}
	for _, v := range a {
		m[v] = struct{}{}
	}
	for _, v := range b {
		m[v] = struct{}{}
	}
	out := make([]string, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	// deterministic order keeps devices.json diffable across merges
	sort.Strings(out)
	return out
}

func sanitizeName(target string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\':
			return '_'
		}
		return r
	}, target)
}

func ensureDir(p string) error {
	return os.MkdirAll(p, 0o755)
}

func resolvePath(dir string) string {
	if d := strings.TrimSpace(dir); d != "" {
		abs, _ := filepath.Abs(d)
		return abs
	}
	if env := strings.TrimSpace(os.Getenv("NETSCRIBE_WORKDIR")); env != "" {
		abs, _ := filepath.Abs(env)
		return abs
	}
	if v := os.Getenv("LOCALAPPDATA"); v != "" {
		return filepath.Join(v, "netscribe")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	if isMac() {
		return filepath.Join(home, "Library", "Application Support", "netscribe")
	}
	return filepath.Join(home, ".local", "share", "netscribe")
}

func isMac() bool {
	return strings.Contains(strings.ToLower(os.Getenv("TERM_PROGRAM")), "apple")
}

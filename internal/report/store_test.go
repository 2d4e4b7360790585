package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"netscribe/internal/discover"
	"netscribe/internal/profile"
)

func testResult(target, sysName string) *discover.Result {
	return &discover.Result{
		SessionID: "abcdef00-0000-0000-0000-000000000000",
		Target:    target,
		StartedAt: time.Now(),
		Device: &profile.DeviceAggregate{
			Identity: profile.SystemIdentity{
				Name:     sysName,
				ObjectID: ".1.3.6.1.4.1.8072.3.2.10",
			},
			Vendor: "generic",
			Interfaces: map[string]*profile.InterfaceRecord{
				"1": {Index: "1", Descr: "lo"},
				"2": {Index: "2", Descr: "eth0", Addresses: []profile.AddressRecord{
					{InterfaceIndex: "2", Protocol: "ipv4", Address: "10.0.0.1", PrefixLength: 24},
				}},
			},
		},
	}
}

func TestEnsureStructure(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.EnsureStructure(); err != nil {
		t.Fatalf("EnsureStructure: %v", err)
	}
	for _, d := range []string{"sessions", "inventory"} {
		if fi, err := os.Stat(filepath.Join(s.Path(), d)); err != nil || !fi.IsDir() {
			t.Errorf("missing subdir %s: %v", d, err)
		}
	}
}

func TestSaveResultRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	sess, err := s.NewSession("abcdef00-1111")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	res := testResult("10.0.0.1", "rtr-lab-1")
	if err := s.SaveResult(sess, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(sess.Path, "10.0.0.1.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got discover.Result
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Device.Identity.Name != "rtr-lab-1" {
		t.Errorf("sysName = %q", got.Device.Identity.Name)
	}
	// absent stack must still appear as an explicit null key
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	var dev map[string]json.RawMessage
	if err := json.Unmarshal(raw["device"], &dev); err != nil {
		t.Fatal(err)
	}
	if string(dev["ifStack"]) != "null" {
		t.Errorf("ifStack = %s, want explicit null", dev["ifStack"])
	}
}

func TestMergeInventoryUpsert(t *testing.T) {
	s := NewStore(t.TempDir())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := s.MergeInventory([]*discover.Result{testResult("10.0.0.1", "rtr-a")}, now); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	later := now.Add(time.Hour)
	if err := s.MergeInventory([]*discover.Result{
		testResult("10.0.0.1", "rtr-a-renamed"),
		testResult("10.0.0.2", "rtr-b"),
	}, later); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	inv, err := s.LoadInventory()
	if err != nil {
		t.Fatalf("LoadInventory: %v", err)
	}
	if len(inv.Devices) != 2 {
		t.Fatalf("device count = %d, want 2", len(inv.Devices))
	}
	var first InventoryDevice
	for _, d := range inv.Devices {
		if d.Target == "10.0.0.1" {
			first = d
		}
	}
	if first.SeenCount != 2 || first.SysName != "rtr-a-renamed" || !first.LastSeen.Equal(later) {
		t.Errorf("upsert wrong: %+v", first)
	}
	if len(first.Addresses) != 1 || first.Addresses[0] != "10.0.0.1/24" {
		t.Errorf("addresses = %v", first.Addresses)
	}
}

func TestMergeInventoryAddressOrderStable(t *testing.T) {
	s := NewStore(t.TempDir())
	res := testResult("10.0.0.1", "rtr-a")
	res.Device.Interfaces["3"] = &profile.InterfaceRecord{
		Index: "3", Descr: "eth1", Addresses: []profile.AddressRecord{
			{InterfaceIndex: "3", Protocol: "ipv4", Address: "10.0.0.9", PrefixLength: 24},
			{InterfaceIndex: "3", Protocol: "ipv4", Address: "10.0.0.2", PrefixLength: 24},
		}}

	now := time.Now()
	want := []string{"10.0.0.1/24", "10.0.0.2/24", "10.0.0.9/24"}
	for i := 0; i < 3; i++ {
		if err := s.MergeInventory([]*discover.Result{res}, now); err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
		inv, err := s.LoadInventory()
		if err != nil {
			t.Fatalf("LoadInventory: %v", err)
		}
		got := inv.Devices[0].Addresses
		if len(got) != len(want) {
			t.Fatalf("merge %d: addresses = %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("merge %d: addresses = %v, want sorted %v", i, got, want)
			}
		}
	}
}

func TestMergeInventorySkipsFailedResults(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.MergeInventory([]*discover.Result{nil}, time.Now()); err != nil {
		t.Fatalf("merge with nil result: %v", err)
	}
	inv, _ := s.LoadInventory()
	if len(inv.Devices) != 0 {
		t.Errorf("device count = %d, want 0", len(inv.Devices))
	}
}

func TestExplicitDirOverridesEnv(t *testing.T) {
	t.Setenv("NETSCRIBE_WORKDIR", "/somewhere/else")
	dir := t.TempDir()
	s := NewStore(dir)
	if s.Path() != dir {
		t.Errorf("path = %q, want %q", s.Path(), dir)
	}
}

package reconcile

import (
	"errors"
	"reflect"
	"testing"

	"netscribe/internal/snmp"
)

func TestMergeRowsUnion(t *testing.T) {
	tables := map[string][]snmp.Datum{
		"descr": {{Index: "1", Value: "eth0"}, {Index: "2", Value: "eth1"}},
		"name":  {{Index: "1", Value: "e0"}, {Index: "3", Value: "lo"}},
	}
	got := MergeRows(tables)

	if len(got) != 3 {
		t.Fatalf("expected union of indices {1,2,3}, got %v", got)
	}
	if got["2"]["name"] != "" {
		t.Errorf("index 2 should have no name, got %q", got["2"]["name"])
	}
	if got["3"]["descr"] != "" {
		t.Errorf("index 3 should have no descr, got %q", got["3"]["descr"])
	}
	if got["1"]["descr"] != "eth0" || got["1"]["name"] != "e0" {
		t.Errorf("index 1 merged wrong: %v", got["1"])
	}
}

func TestMergeRowsCommutative(t *testing.T) {
	a := []snmp.Datum{{Index: "1", Value: "x"}, {Index: "2", Value: "y"}}
	b := []snmp.Datum{{Index: "2", Value: "z"}}

	ab := MergeRows(map[string][]snmp.Datum{"a": a, "b": b})
	ba := MergeRows(map[string][]snmp.Datum{"b": b, "a": a})
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("merge not commutative:\n%v\n%v", ab, ba)
	}
}

func TestInvertAdjacency(t *testing.T) {
	got := InvertAdjacency(map[string]string{
		"10": "2",
		"11": "2",
		"2":  "0",
		"3":  "0",
	})
	want := map[string][]string{
		"2": {"10", "11"},
		"0": {"2", "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InvertAdjacency = %v, want %v", got, want)
	}
}

func TestInvertAdjacencyNumericOrder(t *testing.T) {
	got := InvertAdjacency(map[string]string{
		"9":  "0",
		"10": "0",
		"2":  "0",
	})
	want := []string{"2", "9", "10"}
	if !reflect.DeepEqual(got["0"], want) {
		t.Errorf("children order = %v, want %v", got["0"], want)
	}
}

func TestBuildTreeSingleLeaf(t *testing.T) {
	// Interface 1 with no parent and no children: {1: "0"}.
	children := InvertAdjacency(map[string]string{"1": RootIndex})
	tree, err := BuildTree(children, RootIndex)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("root should have one child, got %d", len(tree.Children))
	}
	leaf := tree.Children[0]
	if leaf.Index != "1" || len(leaf.Children) != 0 {
		t.Errorf("expected leaf node for index 1, got %+v", leaf)
	}
}

func TestBuildTreeNested(t *testing.T) {
	// 0 -> 2 -> {10, 11}
	children := InvertAdjacency(map[string]string{
		"2":  "0",
		"10": "2",
		"11": "2",
	})
	tree, err := BuildTree(children, RootIndex)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].Index != "2" {
		t.Fatalf("unexpected top level: %+v", tree)
	}
	sub := tree.Children[0]
	if len(sub.Children) != 2 || sub.Children[0].Index != "10" || sub.Children[1].Index != "11" {
		t.Errorf("unexpected subinterfaces: %+v", sub.Children)
	}
}

func TestBuildTreeCycle(t *testing.T) {
	// 1 -> 2 -> 1
	children := map[string][]string{
		RootIndex: {"1"},
		"1":       {"2"},
		"2":       {"1"},
	}
	_, err := BuildTree(children, RootIndex)
	var cycle *CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleDetectedError, got %v", err)
	}
	if cycle.Index != "1" {
		t.Errorf("cycle reported at %q, want 1", cycle.Index)
	}
}

func TestBuildTreeSharedSubtreeIsNotACycle(t *testing.T) {
	// Two parents sharing one child (LAG-ish shape) must not be rejected.
	children := map[string][]string{
		RootIndex: {"1", "2"},
		"1":       {"5"},
		"2":       {"5"},
	}
	if _, err := BuildTree(children, RootIndex); err != nil {
		t.Fatalf("shared subtree wrongly rejected: %v", err)
	}
}

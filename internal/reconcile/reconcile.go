// Package reconcile holds the generic table-merging routines the device
// profiles are built on: folding several per-row walk results into one
// record per row index, and turning the interface-stack adjacency into a
// nested tree.
package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"netscribe/internal/snmp"
)

// RootIndex is the reserved interface index meaning "no interface here":
// the stack tree is rooted at it, and an adjacency edge pointing at it
// marks a top-level interface.
const RootIndex = "0"

// MergeRows folds per-attribute walk results, keyed by attribute name, into
// one attribute->value map per row index. The result covers the union of
// indices across all attributes: a row absent from one attribute's walk
// simply has no entry for that attribute. Merge order does not matter.
func MergeRows(tables map[string][]snmp.Datum) map[string]map[string]string {
	out := map[string]map[string]string{}
	for attr, rows := range tables {
		for _, row := range rows {
			rec, ok := out[row.Index]
			if !ok {
				rec = map[string]string{}
				out[row.Index] = rec
			}
			rec[attr] = row.Value
		}
	}
	return out
}

// InvertAdjacency turns a child->parent map into parent->children, with
// children in stable numeric order.
func InvertAdjacency(parentByChild map[string]string) map[string][]string {
	out := map[string][]string{}
	for child, parent := range parentByChild {
		out[parent] = append(out[parent], child)
	}
	for _, children := range out {
		sortIndices(children)
	}
	return out
}

// Node is one interface in the nested stack tree. A node without children
// is a leaf: nothing runs on top of it.
type Node struct {
	Index    string  `json:"index"`
	Children []*Node `json:"children,omitempty"`
}

// CycleDetectedError reports an index that reappeared on its own ancestor
// chain while building the stack tree.
type CycleDetectedError struct {
	Index string
	Path  []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("interface stack cycle at index %s (path %s)",
		e.Index, strings.Join(e.Path, " -> "))
}

// BuildTree expands a parent->children adjacency into a tree rooted at
// root. The visited set tracks the current ancestor path only, so shared
// subtrees are fine but a true cycle fails fast instead of recursing
// forever.
func BuildTree(children map[string][]string, root string) (*Node, error) {
	return buildNode(children, root, map[string]bool{}, []string{})
}

func buildNode(children map[string][]string, index string, onPath map[string]bool, path []string) (*Node, error) {
	if onPath[index] {
		return nil, &CycleDetectedError{Index: index, Path: append(path, index)}
	}
	onPath[index] = true
	defer delete(onPath, index)
	path = append(path, index)

	node := &Node{Index: index}
	for _, child := range children[index] {
		sub, err := buildNode(children, child, onPath, path)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}

// sortIndices orders interface indices numerically where possible, falling
// back to lexicographic order for non-numeric keys.
func sortIndices(idx []string) {
	sort.Slice(idx, func(i, j int) bool {
		a, aerr := strconv.Atoi(idx[i])
		b, berr := strconv.Atoi(idx[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return idx[i] < idx[j]
	})
}

// Package manifest describes a pipeline declaratively, so a runner binary
// can build a NodeMap and its relations from a JSON document instead of
// Go code wiring Node/Relate calls by hand.
package manifest

import (
	"fmt"

	"github.com/keyvi-go/pipeline"
	"github.com/keyvi-go/pipeline/internal/utils"
)

// Manifest is the declarative description of a dataflow graph: a list of
// named nodes and the relations between them.
type Manifest struct {
	Nodes     []NodeSpec     `json:"nodes"`
	Relations []RelationSpec `json:"relations"`
}

// NodeSpec declares one node's static configuration. Steps is a pointer so
// a manifest can distinguish "no step budget declared" (nil, the common
// case) from "declared a step budget of exactly zero" — use
// utils.Ptr(int64(0)) to construct the latter by hand.
type NodeSpec struct {
	Name         string         `json:"name"`
	MemoryWeight float64        `json:"memory_weight"`
	MemoryMin    int64          `json:"memory_min"`
	MemoryMax    int64          `json:"memory_max"`
	Steps        *int64         `json:"steps,omitempty"`
	Params       map[string]any `json:"params"`
}

// RelationSpec declares one edge between two named nodes.
type RelationSpec struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"` // "push", "pull", or "depends_on"
	Buffered bool   `json:"buffered"`
}

// Parse decodes content into a Manifest. Malformed JSON (a common result
// of hand-edited or generated manifests) is repaired via jsonrepair and
// re-parsed once before giving up, via utils.ParseStringAs's
// repair-then-reparse fallback.
func Parse(content string) (*Manifest, error) {
	m, err := utils.ParseStringAs[Manifest](content)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// Build constructs a NodeMap and a set of Nodes from the manifest,
// wiring the declared relations. hooksFor supplies the lifecycle Hooks
// for a node by name — callers provide concrete node behavior since the
// framework itself has no notion of sources, sinks, or transforms.
func Build(m *Manifest, hooksFor func(name string) pipeline.Hooks) (*pipeline.NodeMap, map[string]*pipeline.Node, error) {
	nm := pipeline.NewNodeMap()
	nodes := make(map[string]*pipeline.Node, len(m.Nodes))

	for _, spec := range m.Nodes {
		hooks := pipeline.Hooks{}
		if hooksFor != nil {
			hooks = hooksFor(spec.Name)
		}
		n := pipeline.NewNode(nm, spec.Name, hooks)
		if spec.MemoryWeight > 0 {
			n.SetMemoryWeight(spec.MemoryWeight)
		}
		if spec.MemoryMin != 0 || spec.MemoryMax != 0 {
			n.SetMemoryBounds(spec.MemoryMin, spec.MemoryMax)
		}
		if spec.Steps != nil {
			n.SetSteps(*spec.Steps, nil)
		}
		for k, v := range spec.Params {
			if err := n.SetParam(k, v); err != nil {
				return nil, nil, fmt.Errorf("manifest: node %q: %w", spec.Name, err)
			}
		}
		nodes[spec.Name] = n
	}

	for _, rel := range m.Relations {
		from, ok := nodes[rel.From]
		if !ok {
			return nil, nil, fmt.Errorf("manifest: relation references unknown node %q", rel.From)
		}
		to, ok := nodes[rel.To]
		if !ok {
			return nil, nil, fmt.Errorf("manifest: relation references unknown node %q", rel.To)
		}

		var kind pipeline.RelationKind
		switch rel.Kind {
		case "push":
			kind = pipeline.Push
		case "pull":
			kind = pipeline.Pull
		case "depends_on":
			kind = pipeline.DependsOn
		default:
			return nil, nil, fmt.Errorf("manifest: relation %s->%s has unknown kind %q", rel.From, rel.To, rel.Kind)
		}

		if err := nm.Relate(from.Token(), to.Token(), kind); err != nil {
			return nil, nil, fmt.Errorf("manifest: relate %s->%s: %w", rel.From, rel.To, err)
		}
		if rel.Buffered {
			nm.MarkBuffered(from.Token(), to.Token(), kind)
		}
	}

	return nm, nodes, nil
}

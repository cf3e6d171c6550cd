// Package rules evaluates the unlock/buy rule trees attached to content
// definitions against a snapshot of player state.
package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Op is the node type of a rule tree
type Op uint8

const (
	OpAll Op = iota + 1
	OpAny
	OpLeaf
)

// Leaf predicate types understood by the evaluator
const (
	LevelAtLeast = "level_at_least"
	CoinsAtLeast = "coins_at_least"
)

// Rule is one node of a rule tree: All(children), Any(children) or Leaf(type, value).
// A nil *Rule always passes.
type Rule struct {
	Op       Op
	Children []*Rule
	Type     string
	Value    int64
}

// All builds an AND node
func All(children ...*Rule) *Rule { return &Rule{Op: OpAll, Children: children} }

// Any builds an OR node
func Any(children ...*Rule) *Rule { return &Rule{Op: OpAny, Children: children} }

// Leaf builds a predicate node
func Leaf(kind string, value int64) *Rule { return &Rule{Op: OpLeaf, Type: kind, Value: value} }

// Known reports whether a leaf type has evaluator support
func Known(kind string) bool {
	return kind == LevelAtLeast || kind == CoinsAtLeast
}

// UnknownLeaves lists leaf types in the tree the evaluator will ignore
func (r *Rule) UnknownLeaves() []string {
	if r == nil {
		return nil
	}
	if r.Op == OpLeaf {
		if Known(r.Type) {
			return nil
		}
		return []string{r.Type}
	}
	var out []string
	for _, c := range r.Children {
		out = append(out, c.UnknownLeaves()...)
	}
	return out
}

// UnmarshalYAML decodes the content representation:
//
//	{all: [...]} | {any: [...]} | {type: level_at_least, value: 3} | [...] (implicit all)
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		children, err := decodeChildren(node)
		if err != nil {
			return err
		}
		*r = Rule{Op: OpAll, Children: children}
		return nil
	case yaml.MappingNode:
		var raw map[string]yaml.Node
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if n, ok := raw["all"]; ok {
			children, err := decodeChildren(&n)
			if err != nil {
				return err
			}
			*r = Rule{Op: OpAll, Children: children}
			return nil
		}
		if n, ok := raw["any"]; ok {
			children, err := decodeChildren(&n)
			if err != nil {
				return err
			}
			*r = Rule{Op: OpAny, Children: children}
			return nil
		}
		if n, ok := raw["type"]; ok {
			leaf := Rule{Op: OpLeaf}
			if err := n.Decode(&leaf.Type); err != nil {
				return fmt.Errorf("line %d: rule type: %w", n.Line, err)
			}
			if v, ok := raw["value"]; ok {
				if err := v.Decode(&leaf.Value); err != nil {
					return fmt.Errorf("line %d: rule value: %w", v.Line, err)
				}
			}
			*r = leaf
			return nil
		}
		if len(raw) == 0 {
			*r = Rule{Op: OpAll}
			return nil
		}
		// no recognizable key: an untyped leaf, ignored at evaluation
		*r = Rule{Op: OpLeaf}
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = Rule{Op: OpAll}
			return nil
		}
	}
	return fmt.Errorf("line %d: unsupported rule node", node.Line)
}

func decodeChildren(node *yaml.Node) ([]*Rule, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of rules", node.Line)
	}
	children := make([]*Rule, 0, len(node.Content))
	for _, item := range node.Content {
		child := &Rule{}
		if err := item.Decode(child); err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

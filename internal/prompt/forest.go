package prompt

import (
	"fmt"
	"strings"
)

// Forest holds the prompt nodes as a flat ordered list plus a derived
// children index. Parent references are back-pointers only; the index
// is rebuilt on every mutation, never stored as cyclic pointers.
type Forest struct {
	order    []string
	nodes    map[string]*Prompt
	children map[string][]string
}

// NewForest builds a forest from the given prompts, in order. Parents
// must appear in the input; forward references are rejected the same
// way interactive creation would reject them.
func NewForest(prompts ...Prompt) (*Forest, error) {
	f := &Forest{
		nodes:    make(map[string]*Prompt),
		children: make(map[string][]string),
	}
	for _, p := range prompts {
		if err := f.Add(p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add appends a prompt. A child can only attach to an existing node,
// which keeps the relation a forest by construction.
func (f *Forest) Add(p Prompt) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := f.nodes[p.ID]; exists {
		return fmt.Errorf("prompt %s already exists", p.ID)
	}
	if !p.IsTopLevel() {
		parent, ok := f.nodes[p.ParentID]
		if !ok {
			return fmt.Errorf("prompt %s: parent %s does not exist", p.ID, p.ParentID)
		}
		if err := validateTrigger(p, *parent); err != nil {
			return err
		}
	}
	node := p
	f.nodes[p.ID] = &node
	f.order = append(f.order, p.ID)
	f.reindex()
	return nil
}

func validateTrigger(p, parent Prompt) error {
	switch parent.ResultType {
	case ResultYesNo:
		if p.Condition != ConditionYes && p.Condition != ConditionNo {
			return fmt.Errorf("prompt %s: child of yes/no parent needs condition yes or no", p.ID)
		}
	case ResultScore:
		if p.ConditionOperator != OperatorAbove && p.ConditionOperator != OperatorBelow {
			return fmt.Errorf("prompt %s: child of score parent needs operator above or below", p.ID)
		}
	case ResultBoundingBox:
		// Fan-out children carry no trigger.
	default:
		return fmt.Errorf("prompt %s: parent type %q cannot have conditional children", p.ID, parent.ResultType)
	}
	return nil
}

// Get returns a copy of the prompt with the given id.
func (f *Forest) Get(id string) (Prompt, bool) {
	node, ok := f.nodes[id]
	if !ok {
		return Prompt{}, false
	}
	return *node, true
}

// Len returns the number of prompts in the forest.
func (f *Forest) Len() int {
	return len(f.order)
}

// All returns every prompt in flat list order.
func (f *Forest) All() []Prompt {
	out := make([]Prompt, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.nodes[id])
	}
	return out
}

// TopLevel returns the independent prompts in list order.
func (f *Forest) TopLevel() []Prompt {
	out := make([]Prompt, 0, len(f.order))
	for _, id := range f.order {
		if f.nodes[id].IsTopLevel() {
			out = append(out, *f.nodes[id])
		}
	}
	return out
}

// Children returns the direct children of a prompt in list order.
func (f *Forest) Children(id string) []Prompt {
	ids := f.children[id]
	out := make([]Prompt, 0, len(ids))
	for _, cid := range ids {
		out = append(out, *f.nodes[cid])
	}
	return out
}

// Descendants returns the transitive closure of a prompt's children
// in list order. Used to invalidate stale results on re-run and to
// cascade deletes.
func (f *Forest) Descendants(id string) []Prompt {
	member := map[string]bool{}
	f.collect(id, member)
	out := make([]Prompt, 0, len(member))
	for _, oid := range f.order {
		if member[oid] {
			out = append(out, *f.nodes[oid])
		}
	}
	return out
}

func (f *Forest) collect(id string, member map[string]bool) {
	for _, cid := range f.children[id] {
		if member[cid] {
			continue
		}
		member[cid] = true
		f.collect(cid, member)
	}
}

// Delete removes a prompt and its whole subtree, returning the ids of
// every removed prompt. Confirmation for non-empty subtrees is the
// caller's concern; the cascade itself is not optional.
func (f *Forest) Delete(id string) []string {
	if _, ok := f.nodes[id]; !ok {
		return nil
	}
	removed := map[string]bool{id: true}
	f.collect(id, removed)

	kept := f.order[:0]
	removedOrdered := make([]string, 0, len(removed))
	for _, oid := range f.order {
		if removed[oid] {
			removedOrdered = append(removedOrdered, oid)
			delete(f.nodes, oid)
			continue
		}
		kept = append(kept, oid)
	}
	f.order = kept
	f.reindex()
	return removedOrdered
}

// MoveBefore repositions a top-level prompt, together with its full
// subtree as one contiguous unit, immediately before another
// top-level prompt.
func (f *Forest) MoveBefore(id, targetID string) error {
	node, ok := f.nodes[id]
	if !ok {
		return fmt.Errorf("prompt %s does not exist", id)
	}
	target, ok := f.nodes[targetID]
	if !ok {
		return fmt.Errorf("prompt %s does not exist", targetID)
	}
	if id == targetID {
		return nil
	}
	if !node.IsTopLevel() || !target.IsTopLevel() {
		return fmt.Errorf("only top-level prompts can be reordered")
	}

	moving := map[string]bool{id: true}
	f.collect(id, moving)
	if moving[targetID] {
		return fmt.Errorf("cannot move %s before its own descendant", id)
	}

	block := make([]string, 0, len(moving))
	rest := make([]string, 0, len(f.order)-len(moving))
	for _, oid := range f.order {
		if moving[oid] {
			block = append(block, oid)
		} else {
			rest = append(rest, oid)
		}
	}

	out := make([]string, 0, len(f.order))
	for _, oid := range rest {
		if oid == targetID {
			out = append(out, block...)
		}
		out = append(out, oid)
	}
	f.order = out
	f.reindex()
	return nil
}

func (f *Forest) reindex() {
	f.children = make(map[string][]string, len(f.nodes))
	for _, id := range f.order {
		node := f.nodes[id]
		if pid := strings.TrimSpace(node.ParentID); pid != "" {
			f.children[pid] = append(f.children[pid], id)
		}
	}
}

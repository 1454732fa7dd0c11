// Package trie implements a domain-suffix set used for routing-domain
// matching: a scope claims a set of domains and every name below one of
// them routes to that scope.
package trie

// Trie stores a set of domains and can quickly check whether it
// contains a name or one of the name's ancestors.
//
// It is a semi-compressed trie: a chain of labels that only leads to a
// single terminal is stored as one node. Because lookups use SplitTLD,
// parents are suffixes of the search key even though the data structure
// sees them as prefixes.
type Trie struct {
	split SplitFunc
	root  parent
}

func NewTrie(split SplitFunc) *Trie {
	return &Trie{
		split: split,
		root:  parent{},
	}
}

func (t *Trie) IsEmpty() bool {
	return t.root.children == nil
}

// Insert adds a domain to the set. Inserting a name below an existing
// entry is a no-op; inserting an ancestor of existing entries replaces
// them, since membership of the ancestor covers all of them.
func (t *Trie) Insert(key string) {
	t.root.insert(key, t.split)
}

// HasParentOf reports whether the key or any ancestor of it is in the set.
func (t *Trie) HasParentOf(key string) bool {
	return t.root.hasParentOf(key, t.split)
}

type node interface {
	hasParentOf(key string, split SplitFunc) bool
}

// Terminals are always leaves: children of set members are never
// tracked, since membership of a parent already answers every query
// below it.
type parent struct {
	children map[string]node
}

func newParent() *parent {
	return &parent{
		children: make(map[string]node, 1),
	}
}

func (n *parent) insert(key string, split SplitFunc) {
	if len(key) == 0 {
		return
	}

	for {
		if n.children == nil {
			n.children = make(map[string]node, 1)
		}

		label, rest := split(key)

		child, ok := n.children[label]
		if !ok || len(rest) == 0 {
			n.children[label] = terminal(rest)

			return
		}

		switch child := child.(type) {
		case *parent:
			key = rest
			n = child

			continue

		case terminal:
			if child.hasParentOf(rest, split) {
				return
			}

			p := newParent()
			n.children[label] = p

			p.insert(child.String(), split)
			p.insert(rest, split)

			return
		}
	}
}

func (n *parent) hasParentOf(key string, split SplitFunc) bool {
	for {
		label, rest := split(key)

		child, ok := n.children[label]
		if !ok {
			return false
		}

		switch child := child.(type) {
		case *parent:
			if len(rest) == 0 {
				// only children of the key are in the set
				return false
			}

			key = rest
			n = child

			continue

		case terminal:
			return child.hasParentOf(rest, split)
		}
	}
}

type terminal string

func (t terminal) String() string {
	return string(t)
}

func (t terminal) hasParentOf(searchKey string, split SplitFunc) bool {
	tKey := t.String()
	if tKey == "" {
		return true
	}

	for {
		tLabel, tRest := split(tKey)

		searchLabel, searchRest := split(searchKey)
		if searchLabel != tLabel {
			return false
		}

		if len(tRest) == 0 {
			return true
		}

		if len(searchRest) == 0 {
			return false
		}

		searchKey = searchRest
		tKey = tRest
	}
}

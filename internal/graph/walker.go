// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package graph discovers the referenced/embedded entities reachable from a
// root content entity, producing a flat ordered node list for serialization.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/murrow/lingotek-sub000/internal/entity"
)

// DefaultMaxDepth bounds traversal independently of the visited set,
// guarding against extremely deep or adversarial reference chains.
const DefaultMaxDepth = 20

// Node is one entity visited during a walk. Nodes live in a flat arena slice
// and reference their parent by index rather than by pointer.
type Node struct {
	Index        int
	Parent       int // -1 for the root
	EntityType   string
	EntityID     string
	Bundle       string
	FieldPath    string // dotted path from the root, e.g. field_block.0.field_items.1
	Translatable bool
	Revisit      bool // entity already visited elsewhere in the graph; do not descend
	Entity       *entity.Entity
}

// Walker traverses entity reference graphs with cycle and depth guards.
type Walker struct {
	store    entity.Store
	policy   entity.EnablementPolicy
	MaxDepth int
}

// NewWalker creates a Walker over the given store and enablement policy.
func NewWalker(store entity.Store, policy entity.EnablementPolicy) *Walker {
	return &Walker{store: store, policy: policy, MaxDepth: DefaultMaxDepth}
}

// Result holds the outcome of a walk: the ordered node arena and the nodes
// grouped by the field type that referenced them.
type Result struct {
	Nodes       []Node
	ByFieldType map[string][]int // field type -> node indices
}

// referenceField reports whether a field type holds entity references.
func referenceField(fieldType string) bool {
	switch fieldType {
	case entity.FieldReference, entity.FieldReferenceRevisions, entity.FieldBlock:
		return true
	}
	return false
}

type walkState struct {
	result  *Result
	visited map[entity.Ref]bool
}

// Walk performs a depth-first traversal from root. Referenced entities that
// no longer exist are skipped silently; already-visited entities are recorded
// as shallow revisit nodes without descent.
func (w *Walker) Walk(ctx context.Context, root *entity.Entity) (*Result, error) {
	if root == nil {
		return nil, errors.New("graph: nil root entity")
	}

	st := &walkState{
		result:  &Result{ByFieldType: make(map[string][]int)},
		visited: make(map[entity.Ref]bool),
	}

	rootNode := Node{
		Index:        0,
		Parent:       -1,
		EntityType:   root.Type,
		EntityID:     root.ID,
		Bundle:       root.Bundle,
		Translatable: w.policy.IsTranslatable(root.Type, root.Bundle),
		Entity:       root,
	}
	st.result.Nodes = append(st.result.Nodes, rootNode)
	st.visited[entity.Ref{Type: root.Type, ID: root.ID}] = true

	if err := w.descend(ctx, st, root, 0, "", 1); err != nil {
		return nil, err
	}
	return st.result, nil
}

func (w *Walker) descend(ctx context.Context, st *walkState, e *entity.Entity, parentIdx int, basePath string, depth int) error {
	maxDepth := w.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if depth > maxDepth {
		return nil
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := e.Fields[name]
		if !referenceField(field.Type) {
			continue
		}
		for delta, value := range field.Values {
			if value.Ref == nil {
				continue
			}
			path := name + "." + strconv.Itoa(delta)
			if basePath != "" {
				path = basePath + "." + path
			}

			ref := *value.Ref
			child, err := w.store.Load(ctx, ref.Type, ref.ID)
			if err != nil {
				if errors.Is(err, entity.ErrNotFound) {
					// Orphaned reference: the parent field serializes as absent.
					continue
				}
				return fmt.Errorf("graph: loading %s/%s: %w", ref.Type, ref.ID, err)
			}

			node := Node{
				Index:        len(st.result.Nodes),
				Parent:       parentIdx,
				EntityType:   child.Type,
				EntityID:     child.ID,
				Bundle:       child.Bundle,
				FieldPath:    path,
				Translatable: w.policy.IsTranslatable(child.Type, child.Bundle),
				Entity:       child,
			}

			key := entity.Ref{Type: child.Type, ID: child.ID}
			if st.visited[key] {
				node.Revisit = true
				st.result.Nodes = append(st.result.Nodes, node)
				st.result.ByFieldType[field.Type] = append(st.result.ByFieldType[field.Type], node.Index)
				continue
			}
			st.visited[key] = true
			st.result.Nodes = append(st.result.Nodes, node)
			st.result.ByFieldType[field.Type] = append(st.result.ByFieldType[field.Type], node.Index)

			if err := w.descend(ctx, st, child, node.Index, path, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

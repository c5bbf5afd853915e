// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package entity defines the narrow contract through which the sync core
// reaches CMS content, plus an in-memory revisioned implementation.
package entity

import (
	"context"
	"errors"
)

// Field types understood by the graph walker and serializer.
const (
	FieldText               = "text"
	FieldTextLong           = "text_long"
	FieldReference          = "entity_reference"
	FieldReferenceRevisions = "entity_reference_revisions"
	FieldBlock              = "block_field"
)

// ErrNotFound indicates the entity or revision does not exist.
var ErrNotFound = errors.New("entity: not found")

// Ref identifies an entity by type and id.
type Ref struct {
	Type string
	ID   string
}

// Value is a single field item: either a scalar text value with an optional
// text format, or an entity reference.
type Value struct {
	Text   string `json:"text,omitempty"`
	Format string `json:"format,omitempty"`
	Ref    *Ref   `json:"ref,omitempty"`
}

// Field carries a field's type and ordered item list.
type Field struct {
	Type   string
	Values []Value
}

// Entity is a snapshot of one CMS entity revision.
type Entity struct {
	Type         string
	ID           string
	Bundle       string
	Revision     int64 // 0 when the entity type is not revisionable
	Langcode     string
	Author       string
	Revisionable bool
	Published    bool
	Fields       map[string]Field
	// Translations holds per-langcode field values applied onto this revision.
	Translations map[string]map[string]Field
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Fields = cloneFields(e.Fields)
	if e.Translations != nil {
		c.Translations = make(map[string]map[string]Field, len(e.Translations))
		for lang, fields := range e.Translations {
			c.Translations[lang] = cloneFields(fields)
		}
	}
	return &c
}

// SetTranslation stores translated field values for a langcode on this revision.
func (e *Entity) SetTranslation(langcode string, fields map[string]Field) {
	if e.Translations == nil {
		e.Translations = make(map[string]map[string]Field)
	}
	e.Translations[langcode] = fields
}

func cloneFields(fields map[string]Field) map[string]Field {
	if fields == nil {
		return nil
	}
	out := make(map[string]Field, len(fields))
	for name, f := range fields {
		values := make([]Value, len(f.Values))
		for i, v := range f.Values {
			values[i] = v
			if v.Ref != nil {
				ref := *v.Ref
				values[i].Ref = &ref
			}
		}
		out[name] = Field{Type: f.Type, Values: values}
	}
	return out
}

// Store is the CMS content storage the core depends on. The core never
// mutates entity content except through Save.
type Store interface {
	// Load returns the default revision of an entity.
	Load(ctx context.Context, entityType, id string) (*Entity, error)
	// LoadRevision returns a specific revision of an entity.
	LoadRevision(ctx context.Context, entityType, id string, revision int64) (*Entity, error)
	// Save writes the entity as a new revision and returns the revision id.
	// The revision becomes the default revision only when e.Published is true.
	Save(ctx context.Context, e *Entity) (int64, error)
}

// EnablementPolicy answers which entity types, bundles and fields take part
// in translation. Backed by a configuration snapshot, not entity reflection.
type EnablementPolicy interface {
	// IsEnabled reports whether a field is translation-enabled.
	IsEnabled(entityType, bundle, fieldName string) bool
	// IsTranslatable reports whether a type+bundle combination is
	// translation-enabled at all.
	IsTranslatable(entityType, bundle string) bool
}

// PolicyMap is an EnablementPolicy backed by a loaded configuration
// snapshot keyed "entityType/bundle/fieldName".
type PolicyMap map[string]bool

// IsEnabled implements EnablementPolicy.
func (p PolicyMap) IsEnabled(entityType, bundle, fieldName string) bool {
	return p[entityType+"/"+bundle+"/"+fieldName]
}

// IsTranslatable implements EnablementPolicy.
func (p PolicyMap) IsTranslatable(entityType, bundle string) bool {
	prefix := entityType + "/" + bundle + "/"
	for key, enabled := range p {
		if enabled && len(key) > len(prefix) && key[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

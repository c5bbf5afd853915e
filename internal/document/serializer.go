// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package document converts entity graphs to TMS upload payloads and maps
// downloaded translations back onto entity revisions.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/murrow/lingotek-sub000/internal/entity"
	"github.com/murrow/lingotek-sub000/internal/graph"
	"github.com/murrow/lingotek-sub000/internal/model"
)

// MetadataKey is the reserved sub-map carried on every entity node of a
// payload.
const MetadataKey = "_lingotek_metadata"

// Payload is a nested map mirroring an entity's field structure. Scalar
// field items are {"value": ..., "format": ...} maps; reference fields embed
// child payloads.
type Payload map[string]any

// Metadata returns the payload's _lingotek_metadata sub-map, or nil.
func (p Payload) Metadata() map[string]any {
	if meta, ok := p[MetadataKey].(map[string]any); ok {
		return meta
	}
	return nil
}

// Serializer builds upload payloads from entity graphs.
type Serializer struct {
	walker       *graph.Walker
	policy       entity.EnablementPolicy
	intelligence *model.IntelligenceSettings // general settings; profile overrides take precedence
	baseURL      string
}

// NewSerializer creates a Serializer. The intelligence settings are the
// administrator-configured defaults; a profile override wins when present.
func NewSerializer(walker *graph.Walker, policy entity.EnablementPolicy, intelligence *model.IntelligenceSettings, baseURL string) *Serializer {
	return &Serializer{walker: walker, policy: policy, intelligence: intelligence, baseURL: baseURL}
}

// Serialize converts the entity graph rooted at e into an upload payload.
// Re-serializing an unchanged graph yields an identical payload.
func (s *Serializer) Serialize(ctx context.Context, e *entity.Entity, profile *model.Profile) (Payload, error) {
	result, err := s.walker.Walk(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("document: walking entity graph: %w", err)
	}

	payloads := make([]Payload, len(result.Nodes))
	for i, node := range result.Nodes {
		if node.Revisit {
			// Cycle or duplicate: embed a shallow metadata-only reference.
			payloads[i] = Payload{MetadataKey: s.metadata(node.Entity, profile)}
			continue
		}
		payloads[i] = s.scalarFields(node.Entity)
		payloads[i][MetadataKey] = s.metadata(node.Entity, profile)
	}

	// Attach children to their parents in field order. The field name and
	// delta are the last two segments of the node's field path.
	type slot struct {
		delta   int
		payload Payload
	}
	children := make(map[int]map[string][]slot)
	for i, node := range result.Nodes {
		if node.Parent < 0 {
			continue
		}
		segments := strings.Split(node.FieldPath, ".")
		if len(segments) < 2 {
			continue
		}
		name := segments[len(segments)-2]
		delta, err := strconv.Atoi(segments[len(segments)-1])
		if err != nil {
			continue
		}
		if children[node.Parent] == nil {
			children[node.Parent] = make(map[string][]slot)
		}
		children[node.Parent][name] = append(children[node.Parent][name], slot{delta: delta, payload: payloads[i]})
	}
	for parent, fields := range children {
		for name, slots := range fields {
			sort.Slice(slots, func(a, b int) bool { return slots[a].delta < slots[b].delta })
			items := make([]any, 0, len(slots))
			for _, sl := range slots {
				items = append(items, sl.payload)
			}
			payloads[parent][name] = items
		}
	}

	return payloads[0], nil
}

// scalarFields emits the translation-enabled scalar fields of an entity as
// {value, format?} item lists.
func (s *Serializer) scalarFields(e *entity.Entity) Payload {
	p := Payload{}
	for name, field := range e.Fields {
		switch field.Type {
		case entity.FieldText, entity.FieldTextLong:
		default:
			continue
		}
		if !s.policy.IsEnabled(e.Type, e.Bundle, name) {
			continue
		}
		items := make([]any, 0, len(field.Values))
		for _, v := range field.Values {
			item := map[string]any{"value": v.Text}
			if v.Format != "" {
				item["format"] = v.Format
			}
			items = append(items, item)
		}
		p[name] = items
	}
	return p
}

// metadata builds the _lingotek_metadata sub-map for an entity node.
func (s *Serializer) metadata(e *entity.Entity, profile *model.Profile) map[string]any {
	meta := map[string]any{
		"_entity_type_id": e.Type,
		"_entity_id":      e.ID,
	}
	if e.Revisionable {
		meta["_entity_revision"] = e.Revision
	} else {
		meta["_entity_revision"] = nil
	}

	// Intelligence precedence: profile override > general settings > disabled.
	settings := s.intelligence
	if profile != nil && profile.Intelligence != nil {
		settings = profile.Intelligence
	}
	if settings != nil && settings.Enabled {
		intel := map[string]any{}
		if settings.Author && e.Author != "" {
			intel["author"] = e.Author
		}
		if settings.BusinessUnit != "" {
			intel["business_unit"] = settings.BusinessUnit
		}
		if settings.CampaignID != "" {
			intel["campaign_id"] = settings.CampaignID
		}
		if settings.Domain != "" {
			intel["domain"] = settings.Domain
		}
		if settings.ReferenceURL && s.baseURL != "" {
			intel["reference_url"] = s.baseURL + "/" + e.Type + "/" + e.ID
		}
		meta["_intelligence"] = intel
	}
	return meta
}

// Hash fingerprints the translatable content of a payload. Metadata sub-maps
// are excluded so that a new revision of unchanged content hashes the same.
func Hash(p Payload) string {
	stripped := stripMetadata(map[string]any(p))
	// json.Marshal emits map keys sorted, so the fingerprint is stable.
	b, err := json.Marshal(stripped)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func stripMetadata(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if k == MetadataKey {
				continue
			}
			out[k] = stripMetadata(item)
		}
		return out
	case Payload:
		return stripMetadata(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripMetadata(item)
		}
		return out
	default:
		return v
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/murrow/lingotek-sub000/internal/entity"
)

// PlainTextFormat is the fallback text format applied when a downloaded
// value arrives without one. A text field is never stored with an empty
// format.
const PlainTextFormat = "plain_text"

// Deserializer maps downloaded translation payloads back onto entities.
type Deserializer struct {
	store entity.Store
	strip *bluemonday.Policy
}

// NewDeserializer creates a Deserializer over the given entity store.
func NewDeserializer(store entity.Store) *Deserializer {
	return &Deserializer{store: store, strip: bluemonday.StrictPolicy()}
}

// ApplyOptions controls how a downloaded translation is written back.
type ApplyOptions struct {
	// Langcode is the CMS language the translation is stored under.
	Langcode string
	// Revision is the root revision the document was uploaded against. The
	// translation is applied onto this revision, not the latest one, so a
	// newer draft is never clobbered. Zero means the default revision.
	Revision int64
	// Publish promotes the new translation revision to the default revision.
	// Set only when the uploaded revision is still the published one.
	Publish bool
}

// Apply writes a downloaded payload onto a new translation revision of the
// root entity and onto the default revisions of embedded child entities.
// It returns the new root revision id.
func (d *Deserializer) Apply(ctx context.Context, payload Payload, opts ApplyOptions) (int64, error) {
	meta := payload.Metadata()
	if meta == nil {
		return 0, fmt.Errorf("document: payload has no %s", MetadataKey)
	}
	entityType, _ := meta["_entity_type_id"].(string)
	entityID, _ := meta["_entity_id"].(string)
	if entityType == "" || entityID == "" {
		return 0, fmt.Errorf("document: payload metadata missing entity identity")
	}

	var root *entity.Entity
	var err error
	if opts.Revision != 0 {
		root, err = d.store.LoadRevision(ctx, entityType, entityID, opts.Revision)
	} else {
		root, err = d.store.Load(ctx, entityType, entityID)
	}
	if err != nil {
		return 0, fmt.Errorf("document: loading %s/%s: %w", entityType, entityID, err)
	}

	root.SetTranslation(opts.Langcode, d.translatedFields(payload, root))
	root.Published = opts.Publish
	rev, err := d.store.Save(ctx, root)
	if err != nil {
		return 0, fmt.Errorf("document: saving translation of %s/%s: %w", entityType, entityID, err)
	}

	if err := d.applyChildren(ctx, payload, opts.Langcode); err != nil {
		return 0, err
	}
	return rev, nil
}

// applyChildren walks embedded entity payloads and applies their translated
// fields onto the child entities' default revisions.
func (d *Deserializer) applyChildren(ctx context.Context, payload Payload, langcode string) error {
	for key, value := range payload {
		if key == MetadataKey {
			continue
		}
		items, ok := value.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			child := asPayload(item)
			if child == nil || child.Metadata() == nil {
				continue
			}
			meta := child.Metadata()
			childType, _ := meta["_entity_type_id"].(string)
			childID, _ := meta["_entity_id"].(string)
			if childType == "" || childID == "" {
				continue
			}

			e, err := d.store.Load(ctx, childType, childID)
			if err != nil {
				// Child removed since upload; its translation is dropped.
				continue
			}
			fields := d.translatedFields(child, e)
			if len(fields) > 0 {
				e.SetTranslation(langcode, fields)
				if _, err := d.store.Save(ctx, e); err != nil {
					return fmt.Errorf("document: saving translation of %s/%s: %w", childType, childID, err)
				}
			}
			if err := d.applyChildren(ctx, child, langcode); err != nil {
				return err
			}
		}
	}
	return nil
}

// translatedFields extracts the scalar leaves of an entity payload node as
// translated field values, normalizing text formats.
func (d *Deserializer) translatedFields(payload Payload, e *entity.Entity) map[string]entity.Field {
	fields := make(map[string]entity.Field)
	for name, value := range payload {
		if name == MetadataKey {
			continue
		}
		source, ok := e.Fields[name]
		if !ok {
			// Field removed from the entity since upload; skip silently.
			continue
		}
		switch source.Type {
		case entity.FieldText, entity.FieldTextLong:
		default:
			continue
		}

		items, ok := value.([]any)
		if !ok {
			continue
		}
		translated := entity.Field{Type: source.Type}
		for i, item := range items {
			leaf, ok := item.(map[string]any)
			if !ok {
				continue
			}
			text, _ := leaf["value"].(string)
			format, _ := leaf["format"].(string)
			if format == "" && i < len(source.Values) {
				format = source.Values[i].Format
			}
			if format == "" {
				// Never store an empty format. Defaulting to plain text also
				// strips any markup the value carries.
				format = PlainTextFormat
				text = strings.TrimSpace(d.strip.Sanitize(text))
			}
			translated.Values = append(translated.Values, entity.Value{Text: text, Format: format})
		}
		if len(translated.Values) > 0 {
			fields[name] = translated
		}
	}
	return fields
}

func asPayload(v any) Payload {
	switch val := v.(type) {
	case Payload:
		return val
	case map[string]any:
		return Payload(val)
	default:
		return nil
	}
}

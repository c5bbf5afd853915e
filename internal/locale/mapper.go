// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package locale maps CMS language codes to TMS locale codes and back.
//
// The mapping is not a bijection: many TMS locales (es_AR, es_ES) relate to
// the same langcode (es). Callers must not assume invertibility outside the
// explicit mapping table.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Mapper performs bidirectional langcode <-> TMS locale conversion.
// It is pure: the explicit mapping table is fixed at construction and
// lookups have no side effects.
type Mapper struct {
	toLocale   map[string]string // langcode -> tms locale
	toLangcode map[string]string // tms locale -> langcode
}

// NewMapper builds a Mapper from explicit langcode -> TMS locale pairs.
func NewMapper(mappings map[string]string) *Mapper {
	m := &Mapper{
		toLocale:   make(map[string]string, len(mappings)),
		toLangcode: make(map[string]string, len(mappings)),
	}
	for langcode, tmsLocale := range mappings {
		m.toLocale[langcode] = tmsLocale
		m.toLangcode[tmsLocale] = langcode
	}
	return m
}

// ToTMSLocale converts a CMS langcode to its TMS locale. Without an explicit
// mapping the langcode passes through unchanged, normalized to the TMS
// underscore form (de-AT -> de_AT).
func (m *Mapper) ToTMSLocale(langcode string) string {
	if locale, ok := m.toLocale[langcode]; ok {
		return locale
	}
	return strings.ReplaceAll(langcode, "-", "_")
}

// ToLangcode converts a TMS locale to its CMS langcode. Without an explicit
// mapping the language is derived by stripping the region.
func (m *Mapper) ToLangcode(tmsLocale string) string {
	if langcode, ok := m.toLangcode[tmsLocale]; ok {
		return langcode
	}
	return LanguageFromLocale(tmsLocale)
}

// LanguageFromLocale derives a bare langcode from a possibly
// region-qualified TMS locale: "es_ES" and "es-ES" become "es", bare two or
// three letter codes pass through unchanged. Derivation is deterministic and
// does only region stripping.
func LanguageFromLocale(tmsLocale string) string {
	normalized := strings.ReplaceAll(tmsLocale, "_", "-")
	if tag, err := language.Parse(normalized); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	// Unparseable tags fall back to plain separator stripping.
	if i := strings.IndexAny(tmsLocale, "_-"); i > 0 {
		return strings.ToLower(tmsLocale[:i])
	}
	return strings.ToLower(tmsLocale)
}

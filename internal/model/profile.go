// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Override modes for per-language profile settings.
const (
	OverrideDefault  = "default"
	OverrideCustom   = "custom"
	OverrideDisabled = "disabled"
)

// LanguageOverride customizes or disables translation for one locale
// within a profile.
type LanguageOverride struct {
	Mode       string `json:"mode"` // default, custom, disabled
	WorkflowID string `json:"workflow_id,omitempty"`
	VaultID    string `json:"vault_id,omitempty"`
}

// IntelligenceSettings selects which intelligence metadata fields are sent
// with an upload.
type IntelligenceSettings struct {
	Enabled      bool   `json:"enabled"`
	Author       bool   `json:"author"`
	BusinessUnit string `json:"business_unit,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	Domain       string `json:"domain,omitempty"`
	ReferenceURL bool   `json:"reference_url"`
}

// Profile is a named translation profile governing automatic behavior.
// Profiles are administrator-managed and read-only to the sync core.
type Profile struct {
	ID           string                      `json:"id"`
	AutoUpload   bool                        `json:"auto_upload"`
	AutoDownload bool                        `json:"auto_download"`
	WorkflowID   string                      `json:"workflow_id"`
	ProjectID    string                      `json:"project_id"`
	VaultID      string                      `json:"vault_id"`
	Intelligence *IntelligenceSettings       `json:"intelligence,omitempty"`
	Overrides    map[string]LanguageOverride `json:"overrides,omitempty"` // keyed by TMS locale
}

// TargetDisabled reports whether the profile disables translation for the
// given TMS locale.
func (p *Profile) TargetDisabled(locale string) bool {
	if p == nil {
		return false
	}
	ov, ok := p.Overrides[locale]
	return ok && ov.Mode == OverrideDisabled
}

// WorkflowFor returns the workflow to use for a locale, honoring a custom
// override when one is set.
func (p *Profile) WorkflowFor(locale string) string {
	if ov, ok := p.Overrides[locale]; ok && ov.Mode == OverrideCustom && ov.WorkflowID != "" {
		return ov.WorkflowID
	}
	return p.WorkflowID
}

// VaultFor returns the vault to use for a locale, honoring a custom
// override when one is set.
func (p *Profile) VaultFor(locale string) string {
	if ov, ok := p.Overrides[locale]; ok && ov.Mode == OverrideCustom && ov.VaultID != "" {
		return ov.VaultID
	}
	return p.VaultID
}

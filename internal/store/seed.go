// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Seed inserts the default translation profiles and locale mappings when the
// database is empty. Existing rows are never modified.
func Seed(ctx context.Context, db *sql.DB) error {
	q := New(db)

	if _, err := q.GetProfile(ctx, "automatic"); errors.Is(err, ErrNotFound) {
		if err := q.CreateProfile(ctx, CreateProfileParams{
			ID:         "automatic",
			AutoUpload: true, AutoDownload: true,
		}); err != nil {
			return fmt.Errorf("seeding automatic profile: %w", err)
		}
		slog.Info("seeded profile", "profile", "automatic")
	} else if err != nil {
		return err
	}

	if _, err := q.GetProfile(ctx, "manual"); errors.Is(err, ErrNotFound) {
		if err := q.CreateProfile(ctx, CreateProfileParams{ID: "manual"}); err != nil {
			return fmt.Errorf("seeding manual profile: %w", err)
		}
		slog.Info("seeded profile", "profile", "manual")
	} else if err != nil {
		return err
	}

	// Common region-qualified locales the TMS expects for bare langcodes.
	mappings, err := q.ListLocaleMappings(ctx)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		defaults := map[string]string{
			"en": "en_US",
			"es": "es_MX",
			"de": "de_DE",
			"pt": "pt_BR",
			"zh": "zh_CN",
		}
		for langcode, locale := range defaults {
			if err := q.UpsertLocaleMapping(ctx, langcode, locale); err != nil {
				return fmt.Errorf("seeding locale mapping %s: %w", langcode, err)
			}
		}
		slog.Info("seeded locale mappings", "count", len(defaults))
	}

	return nil
}

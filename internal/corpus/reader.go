// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// pageDocument is the shape of the per-page JSON files inside a title
// archive. Only the content field matters for training; everything else
// is layout metadata.
type pageDocument struct {
	Content string `json:"content"`
}

// ExtractTitleText merges the content fields of every .json file in the
// title's directory, in lexicographic file order, separated by single
// spaces. Returns an empty string when the directory holds no JSON files.
func ExtractTitleText(titleDir string) (string, error) {
	entries, err := os.ReadDir(titleDir)
	if err != nil {
		return "", fmt.Errorf("failed to read title directory %s: %w", titleDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		path := filepath.Join(titleDir, name)
		data, err := os.ReadFile(path) // #nosec G304 -- path is built from a managed data directory
		if err != nil {
			return "", fmt.Errorf("failed to read page file %s: %w", path, err)
		}

		var page pageDocument
		if err := json.Unmarshal(data, &page); err != nil {
			return "", fmt.Errorf("failed to parse page file %s: %w", path, err)
		}
		if trimmed := strings.TrimSpace(page.Content); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, " "), nil
}

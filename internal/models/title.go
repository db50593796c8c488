// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package models defines the domain entities and API envelope types shared
// across the database, pipeline and HTTP layers.
package models

import "time"

// Title is a catalog row for a single document (book).
//
// Lifecycle: created from the content service or a bulk payload with
// metadata only; CompleteText is attached by the extract-text step;
// VectorFile is attached after training-data preparation with the path of
// the per-title dense vector CSV.
type Title struct {
	ID           int64     `json:"id"`
	Identifier   string    `json:"identifier"`
	Publisher    string    `json:"publisher"`
	Theme        string    `json:"theme"`
	Name         string    `json:"name"`
	CompleteText string    `json:"complete_text,omitempty"`
	VectorFile   string    `json:"vector_file,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasText reports whether the title has extracted text attached.
func (t *Title) HasText() bool {
	return t.CompleteText != ""
}

// TitlePayload is the wire shape of a title coming from the content
// service or a bulk mapping request. Theme entries are name-bearing
// objects; only the first theme name is kept on the catalog row.
type TitlePayload struct {
	SyncKey   string         `json:"sync_key"`
	TitleName string         `json:"title_name"`
	Publisher NamedEntity    `json:"publisher"`
	Theme     []NamedEntity  `json:"theme"`
}

// NamedEntity is a minimal name-bearing object in content service payloads.
type NamedEntity struct {
	Name string `json:"name"`
}

// ToTitle converts a payload into a catalog row. Missing theme entries
// map to an empty theme, matching the upstream service contract.
func (p *TitlePayload) ToTitle() Title {
	theme := ""
	if len(p.Theme) > 0 {
		theme = p.Theme[0].Name
	}
	return Title{
		Identifier: p.SyncKey,
		Publisher:  p.Publisher.Name,
		Theme:      theme,
		Name:       p.TitleName,
	}
}

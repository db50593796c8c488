// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and drops punctuation",
			text: "El Ingenioso Hidalgo, Don Quijote.",
			want: []string{"ingenioso", "hidalgo", "don", "quijote"},
		},
		{
			name: "drops stop words",
			text: "la casa de los espíritus",
			want: []string{"casa", "espíritus"},
		},
		{
			name: "drops bare numbers but keeps alphanumerics",
			text: "capítulo 42 sección b2",
			want: []string{"capítulo", "sección", "b2"},
		},
		{
			name: "drops single-rune tokens",
			text: "y o a x libro",
			want: []string{"libro"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "accented words survive segmentation",
			text: "canción melancólica del árbol",
			want: []string{"canción", "melancólica", "árbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsStopWord(t *testing.T) {
	t.Parallel()

	for _, w := range []string{"el", "la", "de", "que", "había"} {
		if !IsStopWord(w) {
			t.Errorf("expected %q to be a stop word", w)
		}
	}
	for _, w := range []string{"libro", "quijote", "casa"} {
		if IsStopWord(w) {
			t.Errorf("did not expect %q to be a stop word", w)
		}
	}
}

func writePage(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestExtractTitleText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePage(t, dir, "page_02.json", `{"content": "segunda página"}`)
	writePage(t, dir, "page_01.json", `{"content": "primera página"}`)
	writePage(t, dir, "page_03.json", `{"content": "  "}`)
	writePage(t, dir, "notes.txt", "ignored")

	got, err := ExtractTitleText(dir)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	want := "primera página segunda página"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractTitleTextEmptyDir(t *testing.T) {
	t.Parallel()

	got, err := ExtractTitleText(t.TempDir())
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestExtractTitleTextBadJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePage(t, dir, "broken.json", `{"content": `)

	if _, err := ExtractTitleText(dir); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestExtractTitleTextMissingDir(t *testing.T) {
	t.Parallel()

	if _, err := ExtractTitleText(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

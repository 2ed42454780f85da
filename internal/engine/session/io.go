// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package session

import (
	"fmt"

	"github.com/spf13/afero"

	"kshark/internal/engine/kserr"
)

// SaveToFile pretty-prints doc as two-space-indented JSON and writes it to
// path on fs, the same afero.Fs abstraction the rest of the engine uses for
// file access so tests can exercise session I/O against an in-memory
// filesystem.
func SaveToFile(fs afero.Fs, path string, doc Doc) error {
	b, err := jsonAPI.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", kserr.ErrInvalidFormat, err)
	}
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", kserr.ErrBackend, err)
	}
	return nil
}

// LoadFromFile reads and decodes a session document from path on fs. A
// malformed document is reported as a single kserr.ErrInvalidFormat
// diagnostic, per §4.11 — the caller is expected to leave its context
// untouched on error.
func LoadFromFile(fs afero.Fs, path string) (Doc, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return Doc{}, fmt.Errorf("%w: %s: %v", kserr.ErrNotFound, path, err)
	}
	var doc Doc
	if err := jsonAPI.Unmarshal(b, &doc); err != nil {
		return Doc{}, fmt.Errorf("%w: %s: %v", kserr.ErrInvalidFormat, path, err)
	}
	return doc, nil
}

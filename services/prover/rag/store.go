// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persisted artifact names. The three files form one logical snapshot:
// load treats a missing or inconsistent artifact as "no index".
const (
	chunksFile     = "chunks.json"
	embeddingsFile = "embeddings.json"
	metadataFile   = "metadata.json"
)

// Metadata describes the persisted index snapshot.
type Metadata struct {
	NumChunks      int    `json:"num_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	ChunkSize      int    `json:"chunk_size"`
	OverlapSize    int    `json:"overlap_size"`
}

// snapshotExists reports whether all three artifacts are present.
func snapshotExists(dbDir string) bool {
	for _, name := range []string{chunksFile, embeddingsFile, metadataFile} {
		if _, err := os.Stat(filepath.Join(dbDir, name)); err != nil {
			return false
		}
	}
	return true
}

// loadSnapshot reads the three artifacts and validates that they agree.
func loadSnapshot(dbDir string) ([]Chunk, [][]float32, Metadata, error) {
	var (
		chunks  []Chunk
		vectors [][]float32
		meta    Metadata
	)

	if err := readJSON(filepath.Join(dbDir, chunksFile), &chunks); err != nil {
		return nil, nil, meta, err
	}
	if err := readJSON(filepath.Join(dbDir, embeddingsFile), &vectors); err != nil {
		return nil, nil, meta, err
	}
	if err := readJSON(filepath.Join(dbDir, metadataFile), &meta); err != nil {
		return nil, nil, meta, err
	}

	if len(chunks) != len(vectors) || len(chunks) != meta.NumChunks {
		return nil, nil, meta, fmt.Errorf("%w: %d chunks, %d vectors, metadata says %d",
			ErrCorruptIndex, len(chunks), len(vectors), meta.NumChunks)
	}
	return chunks, vectors, meta, nil
}

// saveSnapshot writes all three artifacts. There is no partial format:
// every mutation re-persists the full index.
func saveSnapshot(dbDir string, chunks []Chunk, vectors [][]float32, meta Metadata) error {
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	meta.NumChunks = len(chunks)

	if err := writeJSON(filepath.Join(dbDir, chunksFile), chunks); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dbDir, embeddingsFile), vectors); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dbDir, metadataFile), meta)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

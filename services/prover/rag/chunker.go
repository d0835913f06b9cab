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

import "strings"

// SectionMarker separates independent sections inside a corpus document.
// Documents are split on this marker before windowing so a chunk never
// straddles two unrelated examples.
const SectionMarker = "<EOC>"

// Document is one ingestible section of a corpus file.
type Document struct {
	Content string
	Source  string
	Section int
}

// Chunk is the unit of retrieval: a fixed-size window of a document.
// Immutable after creation. ID is unique within one index.
type Chunk struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Section int    `json:"section"`
	ID      int    `json:"chunk_id"`
}

// splitSections breaks raw file content into Documents, one per
// SectionMarker-delimited section. Sections that are blank after
// trimming are dropped; kept sections are stored trimmed.
func splitSections(content, source string) []Document {
	sections := []string{content}
	if strings.Contains(content, SectionMarker) {
		sections = strings.Split(content, SectionMarker)
	}

	var docs []Document
	for i, section := range sections {
		trimmed := strings.TrimSpace(section)
		if trimmed == "" {
			continue
		}
		docs = append(docs, Document{
			Content: trimmed,
			Source:  source,
			Section: i,
		})
	}
	return docs
}

// chunkDocuments windows each document into chunks of chunkSize
// characters, advancing chunkSize-overlap characters per step. Sizes
// count runes, not bytes: Lean text is full of multibyte symbols
// (`∀`, `→`, `ℕ`) and a byte boundary would split one mid-sequence.
// Windows that are blank after trimming are dropped; the stored
// content keeps its original whitespace. Chunk IDs continue from
// nextID so appended chunks never collide with existing ones.
//
// Identical input always yields an identical chunk sequence.
func chunkDocuments(docs []Document, chunkSize, overlap, nextID int) []Chunk {
	step := chunkSize - overlap
	if step <= 0 {
		return nil
	}

	var chunks []Chunk
	for _, doc := range docs {
		content := []rune(doc.Content)
		for i := 0; i < len(content); i += step {
			end := i + chunkSize
			if end > len(content) {
				end = len(content)
			}
			window := string(content[i:end])
			if strings.TrimSpace(window) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Content: window,
				Source:  doc.Source,
				Section: doc.Section,
				ID:      nextID + len(chunks),
			})
		}
	}
	return chunks
}

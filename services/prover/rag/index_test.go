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
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector per exact input text, falling
// back to defaultVec for texts it has never seen. Deterministic, so
// rankings in these tests are fully predictable.
type fakeEmbedder struct {
	vectors    map[string][]float32
	defaultVec []float32
	err        error
	calls      int
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, f.defaultVec)
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSnapshot persists a hand-built index so tests can construct
// exact vector layouts without going through the embedder.
func writeSnapshot(t *testing.T, dbDir string, chunks []Chunk, vectors [][]float32) {
	t.Helper()
	meta := Metadata{
		NumChunks:      len(chunks),
		EmbeddingModel: "test-embedding",
		ChunkSize:      DefaultChunkSize,
		OverlapSize:    DefaultOverlapSize,
	}
	require.NoError(t, saveSnapshot(dbDir, chunks, vectors, meta))
}

func TestNew_NilContext(t *testing.T) {
	_, err := New(nil, &fakeEmbedder{}) //nolint:staticcheck // deliberate nil context
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestNew_NilEmbedder(t *testing.T) {
	_, err := New(context.Background(), nil,
		WithDBDir(t.TempDir()),
		WithDocumentsDir(t.TempDir()),
	)
	assert.ErrorIs(t, err, ErrNilEmbedder)
}

func TestNew_RejectsInvalidChunking(t *testing.T) {
	_, err := New(context.Background(), &fakeEmbedder{},
		WithChunking(100, 100),
		WithDBDir(t.TempDir()),
		WithDocumentsDir(t.TempDir()),
	)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestNew_MaterializesDefaultCorpus(t *testing.T) {
	docsDir := t.TempDir()
	dbDir := filepath.Join(t.TempDir(), "embedding_db")

	emb := &fakeEmbedder{defaultVec: []float32{1, 0, 0}}
	ix, err := New(context.Background(), emb,
		WithDocumentsDir(docsDir),
		WithDBDir(dbDir),
		WithChunking(200, 40),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	assert.Positive(t, ix.Count(), "default corpus must produce chunks")
	assert.True(t, snapshotExists(dbDir), "build must persist all three artifacts")

	entries, err := os.ReadDir(docsDir)
	require.NoError(t, err)
	assert.Len(t, entries, len(defaultDocuments), "default corpus files written to disk")
}

func TestNew_LoadsPersistedSnapshotWithoutEmbedding(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir,
		[]Chunk{
			{Content: "rfl closes reflexivity goals", Source: "a.txt", ID: 0},
			{Content: "omega decides linear arithmetic", Source: "a.txt", ID: 1},
		},
		[][]float32{{1, 0}, {0, 1}},
	)

	emb := &fakeEmbedder{err: errors.New("must not be called")}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Count())
	assert.Equal(t, 0, emb.calls, "loading a snapshot must not re-embed")
	assert.Equal(t, "test-embedding", ix.Metadata().EmbeddingModel,
		"model name comes from the persisted metadata")
}

func TestNew_RebuildsOnCorruptSnapshot(t *testing.T) {
	dbDir := t.TempDir()
	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "corpus.txt"),
		[]byte("simp simplifies goals using the simp set"), 0o644))

	// Metadata disagrees with the artifact lengths.
	writeSnapshot(t, dbDir, []Chunk{{Content: "stale", ID: 0}}, [][]float32{{1}})
	meta := Metadata{NumChunks: 99}
	require.NoError(t, writeJSON(filepath.Join(dbDir, metadataFile), meta))

	emb := &fakeEmbedder{defaultVec: []float32{1, 0}}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(docsDir),
		WithChunking(500, 100),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.Equal(t, 1, ix.Count())
	assert.Contains(t, ix.chunks[0].Content, "simp", "index rebuilt from the documents dir")
	assert.Positive(t, emb.calls)
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir,
		[]Chunk{
			{Content: "induction walks the recursive structure", Source: "a.txt", ID: 0},
			{Content: "rfl closes reflexivity goals", Source: "a.txt", ID: 1},
			{Content: "omega decides linear arithmetic", Source: "a.txt", ID: 2},
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.7, 0.7, 0}},
	)

	emb := &fakeEmbedder{
		vectors:    map[string][]float32{"how do I prove equality": {0, 1, 0}},
		defaultVec: []float32{0, 0, 1},
	}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	results := ix.Search(context.Background(), "how do I prove equality", 2)

	require.Len(t, results, 2, "results capped at k")
	assert.Equal(t, 1, results[0].ID, "exact-direction match ranks first")
	assert.Equal(t, 2, results[1].ID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity,
		"similarities are non-increasing")
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	dbDir := t.TempDir()
	same := []float32{1, 0}
	writeSnapshot(t, dbDir,
		[]Chunk{
			{Content: "first identical chunk", ID: 0},
			{Content: "second identical chunk", ID: 1},
			{Content: "third identical chunk", ID: 2},
		},
		[][]float32{same, same, same},
	)

	emb := &fakeEmbedder{defaultVec: []float32{1, 0}}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	results := ix.Search(context.Background(), "anything", 3)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.ID, "equal scores preserve insertion order")
	}
}

func TestSearch_DegenerateInputs(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir, []Chunk{{Content: "c", ID: 0}}, [][]float32{{1}})

	emb := &fakeEmbedder{defaultVec: []float32{1}}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	assert.Nil(t, ix.Search(context.Background(), "", 3), "empty query yields no context")
	assert.Nil(t, ix.Search(nil, "query", 3), "nil context yields no context") //nolint:staticcheck

	emb.err = errors.New("provider down")
	assert.Nil(t, ix.Search(context.Background(), "query", 3),
		"query embedding failure yields no context, not an error")
}

func TestAddDocument_AppendsAndPersists(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir,
		[]Chunk{{Content: "existing chunk", ID: 0}},
		[][]float32{{1, 0}},
	)

	newContent := "decide evaluates decidable propositions"
	emb := &fakeEmbedder{
		vectors:    map[string][]float32{newContent: {0, 1}},
		defaultVec: []float32{1, 0},
	}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.NoError(t, ix.AddDocument(context.Background(), newContent, "user.txt"))

	require.Equal(t, 2, ix.Count())
	assert.Equal(t, 1, ix.chunks[1].ID, "appended chunk IDs continue the sequence")

	// The mutation re-persisted the whole snapshot.
	chunks, vectors, meta, err := loadSnapshot(dbDir)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 2, meta.NumChunks)

	// And it is immediately searchable.
	emb.vectors["find decide"] = []float32{0, 1}
	results := ix.Search(context.Background(), "find decide", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "user.txt", results[0].Source)
}

func TestAddDocument_PersistFailureLeavesIndexUnchanged(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir,
		[]Chunk{{Content: "existing chunk", ID: 0}},
		[][]float32{{1, 0}},
	)

	ix, err := New(context.Background(), &fakeEmbedder{defaultVec: []float32{1, 0}},
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	// Point the index at an unwritable db path: a regular file where the
	// directory should be makes every save fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	ix.dbDir = filepath.Join(blocker, "db")

	err = ix.AddDocument(context.Background(), "decide evaluates decidable propositions", "user.txt")

	require.Error(t, err)
	assert.Equal(t, 1, ix.Count(), "failed persist must not grow the live index")
	assert.Len(t, ix.vectors, 1)

	// The original snapshot is untouched.
	chunks, _, meta, loadErr := loadSnapshot(dbDir)
	require.NoError(t, loadErr)
	assert.Len(t, chunks, 1)
	assert.Equal(t, 1, meta.NumChunks)
}

func TestAddDocument_RejectsBlankContent(t *testing.T) {
	dbDir := t.TempDir()
	writeSnapshot(t, dbDir, []Chunk{{Content: "c", ID: 0}}, [][]float32{{1}})

	ix, err := New(context.Background(), &fakeEmbedder{defaultVec: []float32{1}},
		WithDBDir(dbDir),
		WithDocumentsDir(t.TempDir()),
		WithChunking(DefaultChunkSize, DefaultOverlapSize),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, ix.AddDocument(context.Background(), "   \n\t", "s"), ErrEmptyContent)
	assert.ErrorIs(t, ix.AddDocument(nil, "content", "s"), ErrNilContext) //nolint:staticcheck
	assert.Equal(t, 1, ix.Count())
}

func TestEmbedChunks_ZeroVectorFallback(t *testing.T) {
	docsDir := t.TempDir()
	dbDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "corpus.txt"),
		[]byte("cases splits on a hypothesis"), 0o644))

	emb := &fakeEmbedder{err: errors.New("provider down")}
	ix, err := New(context.Background(), emb,
		WithDBDir(dbDir),
		WithDocumentsDir(docsDir),
		WithChunking(500, 100),
		WithEmbeddingDim(8),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err, "embedding failure degrades, it does not abort the build")

	require.Equal(t, 1, ix.Count())
	require.Len(t, ix.vectors, 1, "parallel sequences stay aligned under failure")
	assert.Len(t, ix.vectors[0], 8, "fallback vectors use the configured dimensionality")
	assert.Zero(t, cosineSimilarity(ix.vectors[0], ix.vectors[0]),
		"zero vectors never rank above real embeddings")
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical direction", a: []float32{1, 0}, b: []float32{2, 0}, expected: 1.0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0.0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expected: -1.0},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, expected: 0.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, expected: 0.0},
		{name: "empty", a: nil, b: nil, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

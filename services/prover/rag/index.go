// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rag implements the retrieval index: a flat vector store over
// chunked Lean 4 documentation with exact top-k cosine search.
//
// The index keeps two parallel sequences, chunks and vectors, with
// vectors[i] always the embedding of chunks[i]. It grows only by append
// and re-persists the full three-artifact snapshot after every mutation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ProofSmith/services/llm"
)

// ragTracer is the OpenTelemetry tracer for index operations.
var ragTracer = otel.Tracer("proofsmith.prover.rag")

// Defaults, overridable via environment or options.
const (
	DefaultChunkSize   = 1000
	DefaultOverlapSize = 200
	DefaultMaxChunks   = 10

	embedBatchSize = 100
)

// SearchResult is a chunk paired with its similarity to a query.
// Ephemeral: produced per search, never persisted.
type SearchResult struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// Index is the retrieval store. Load-from-disk-or-build-default on
// construction, mutated only by AddDocument, read by Search.
type Index struct {
	embedder     llm.EmbeddingClient
	documentsDir string
	dbDir        string
	chunkSize    int
	overlapSize  int
	embeddingDim int
	modelName    string
	logger       *slog.Logger

	chunks  []Chunk
	vectors [][]float32
}

// Option configures the Index.
type Option func(*Index)

// WithDocumentsDir sets the corpus directory scanned on a rebuild.
func WithDocumentsDir(dir string) Option {
	return func(ix *Index) { ix.documentsDir = dir }
}

// WithDBDir sets the directory holding the persisted artifacts.
func WithDBDir(dir string) Option {
	return func(ix *Index) { ix.dbDir = dir }
}

// WithChunking overrides the window and overlap sizes.
func WithChunking(chunkSize, overlapSize int) Option {
	return func(ix *Index) {
		ix.chunkSize = chunkSize
		ix.overlapSize = overlapSize
	}
}

// WithEmbeddingModel records the model identifier in the metadata.
func WithEmbeddingModel(name string) Option {
	return func(ix *Index) { ix.modelName = name }
}

// WithEmbeddingDim sets the dimensionality used for zero-vector fallback.
func WithEmbeddingDim(dim int) Option {
	return func(ix *Index) { ix.embeddingDim = dim }
}

// WithLogger sets the logger for index operations.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) { ix.logger = logger }
}

// New creates the index: loads the persisted snapshot if all three
// artifacts are present, otherwise rebuilds from the documents
// directory, materializing the built-in default corpus first when the
// directory has no text files. The returned index is never empty on a
// successful build unless embedding and the default corpus both fail.
//
// Inputs:
//
//	ctx - Context for the initial embedding calls. Must not be nil.
//	embedder - Embedding backend. Must not be nil.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Index - The ready index.
//	error - Non-nil on configuration or disk failure.
func New(ctx context.Context, embedder llm.EmbeddingClient, opts ...Option) (*Index, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}

	ix := &Index{
		embedder:     embedder,
		documentsDir: "documents",
		dbDir:        "embedding_db",
		chunkSize:    envInt("CHUNK_SIZE", DefaultChunkSize),
		overlapSize:  envInt("OVERLAP_SIZE", DefaultOverlapSize),
		embeddingDim: llm.DefaultEmbeddingDim,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.overlapSize >= ix.chunkSize {
		return nil, fmt.Errorf("%w: chunk %d, overlap %d", ErrInvalidChunking, ix.chunkSize, ix.overlapSize)
	}

	if snapshotExists(ix.dbDir) {
		chunks, vectors, meta, err := loadSnapshot(ix.dbDir)
		if err == nil {
			ix.chunks = chunks
			ix.vectors = vectors
			if meta.EmbeddingModel != "" {
				ix.modelName = meta.EmbeddingModel
			}
			ix.logger.Info("Loaded embedding database",
				slog.Int("chunks", len(chunks)),
				slog.String("db_dir", ix.dbDir),
			)
			return ix, nil
		}
		ix.logger.Warn("Failed to load persisted index, rebuilding",
			slog.String("error", err.Error()),
		)
	}

	if err := ix.rebuild(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}

// Count returns the number of stored chunks.
func (ix *Index) Count() int { return len(ix.chunks) }

// Metadata returns the current snapshot metadata.
func (ix *Index) Metadata() Metadata {
	return Metadata{
		NumChunks:      len(ix.chunks),
		EmbeddingModel: ix.modelName,
		ChunkSize:      ix.chunkSize,
		OverlapSize:    ix.overlapSize,
	}
}

// rebuild ingests every *.txt file in the documents directory,
// materializing the default corpus first if the directory is empty.
func (ix *Index) rebuild(ctx context.Context) error {
	ix.logger.Info("Creating new embedding database", slog.String("documents_dir", ix.documentsDir))

	if err := os.MkdirAll(ix.documentsDir, 0o755); err != nil {
		return fmt.Errorf("create documents dir: %w", err)
	}

	docs, err := ix.loadDocuments()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		ix.logger.Info("No documents found, materializing default Lean 4 corpus")
		if err := ix.materializeDefaults(); err != nil {
			return err
		}
		if docs, err = ix.loadDocuments(); err != nil {
			return err
		}
	}

	ix.chunks = chunkDocuments(docs, ix.chunkSize, ix.overlapSize, 0)
	ix.vectors = ix.embedChunks(ctx, ix.chunks)

	if err := saveSnapshot(ix.dbDir, ix.chunks, ix.vectors, ix.Metadata()); err != nil {
		return err
	}
	ix.logger.Info("Created embedding database", slog.Int("chunks", len(ix.chunks)))
	return nil
}

// loadDocuments reads every *.txt corpus file, splitting on the section
// marker. Unreadable files are skipped with a warning.
func (ix *Index) loadDocuments() ([]Document, error) {
	paths, err := filepath.Glob(filepath.Join(ix.documentsDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("scan documents dir: %w", err)
	}
	sort.Strings(paths)

	var docs []Document
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			ix.logger.Warn("Skipping unreadable document",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		docs = append(docs, splitSections(string(content), path)...)
	}
	return docs, nil
}

// materializeDefaults writes the built-in corpus files to disk.
func (ix *Index) materializeDefaults() error {
	for _, doc := range defaultDocuments {
		path := filepath.Join(ix.documentsDir, doc.filename)
		if err := os.WriteFile(path, []byte(doc.content), 0o644); err != nil {
			return fmt.Errorf("write default document %s: %w", doc.filename, err)
		}
	}
	return nil
}

// embedChunks embeds chunks in fixed-size batches. A failed batch is
// filled with zero-vectors of the expected dimensionality so the
// parallel-sequence invariant holds even under partial provider
// failure, at the cost of zero-similarity ranking for that batch.
func (ix *Index) embedChunks(ctx context.Context, chunks []Chunk) [][]float32 {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		batch, err := ix.embedder.BatchEmbed(ctx, texts)
		if err != nil || len(batch) != len(texts) {
			ix.logger.Warn("Embedding batch failed, filling with zero vectors",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(texts)),
			)
			batch = make([][]float32, len(texts))
			for i := range batch {
				batch[i] = make([]float32, ix.embeddingDim)
			}
		}
		vectors = append(vectors, batch...)

		ix.logger.Debug("Embedded chunk batch",
			slog.Int("processed", end),
			slog.Int("total", len(chunks)),
		)
	}
	return vectors
}

// Search returns the k chunks most similar to the query, highest
// similarity first. Ties keep the original insertion order. An empty
// index or a failed query embedding yields an empty result list, never
// an error: callers treat that as "no context available".
func (ix *Index) Search(ctx context.Context, query string, k int) []SearchResult {
	if ctx == nil || query == "" {
		return nil
	}
	if k <= 0 {
		k = envInt("MAX_CHUNKS", DefaultMaxChunks)
	}
	if len(ix.chunks) == 0 {
		return nil
	}

	ctx, span := ragTracer.Start(ctx, "rag.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("rag.k", k),
		attribute.Int("rag.index_size", len(ix.chunks)),
	)

	queryVectors, err := ix.embedder.BatchEmbed(ctx, []string{query})
	if err != nil || len(queryVectors) == 0 {
		ix.logger.Warn("Query embedding failed, returning no context",
			slog.String("error", fmt.Sprintf("%v", err)),
		)
		return nil
	}
	queryVector := queryVectors[0]

	results := make([]SearchResult, 0, len(ix.chunks))
	for i, chunk := range ix.chunks {
		results = append(results, SearchResult{
			Chunk:      chunk,
			Similarity: cosineSimilarity(queryVector, ix.vectors[i]),
		})
	}

	// Stable sort over insertion order: equal scores keep the earlier chunk.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	span.SetAttributes(attribute.Int("rag.results", len(results)))
	return results
}

// AddDocument chunks and embeds new content exactly as at build time,
// appends to both parallel sequences, and re-persists the full index.
func (ix *Index) AddDocument(ctx context.Context, content, source string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if source == "" {
		source = "user_added"
	}

	docs := splitSections(content, source)
	newChunks := chunkDocuments(docs, ix.chunkSize, ix.overlapSize, len(ix.chunks))
	if len(newChunks) == 0 {
		return nil
	}
	newVectors := ix.embedChunks(ctx, newChunks)

	// Persist the combined snapshot before touching the live index, so a
	// failed save leaves memory and disk agreeing on the old state.
	chunks := append(append([]Chunk{}, ix.chunks...), newChunks...)
	vectors := append(append([][]float32{}, ix.vectors...), newVectors...)
	if err := saveSnapshot(ix.dbDir, chunks, vectors, ix.Metadata()); err != nil {
		return err
	}
	ix.chunks = chunks
	ix.vectors = vectors
	ix.logger.Info("Added document to index",
		slog.String("source", source),
		slog.Int("new_chunks", len(newChunks)),
		slog.Int("total_chunks", len(ix.chunks)),
	)
	return nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors, in [-1, 1]. Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// envInt reads an integer environment variable with a default.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingDim is the output dimensionality of the default
// embedding model (text-embedding-3-small).
const DefaultEmbeddingDim = 1536

// OpenAIClient wraps the OpenAI API for chat completions and embeddings.
// It implements both LLMClient and EmbeddingClient.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// Compile-time interface implementation checks.
var (
	_ LLMClient       = (*OpenAIClient)(nil)
	_ EmbeddingClient = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client bound to one chat model.
//
// The API key is read from OPENAI_API_KEY, falling back to the Podman
// secrets mount. The chat model defaults to gpt-4o-mini when model is
// empty and OPENAI_MODEL is unset; the embedding model defaults to
// text-embedding-3-small.
func NewOpenAIClient(model string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, ErrMissingAPIKey
		}
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	embeddingModel := os.Getenv("EMBEDDING_MODEL")
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}
	slog.Info("Initializing OpenAI client", "model", model, "embedding_model", embeddingModel)
	return &OpenAIClient{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

// Model returns the chat model this client is bound to.
func (o *OpenAIClient) Model() string { return o.model }

// EmbeddingModel returns the embedding model identifier.
func (o *OpenAIClient) EmbeddingModel() string { return o.embeddingModel }

// Chat implements the LLMClient interface.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrEmptyInput)
	}
	slog.Debug("Generating text via OpenAI", "model", o.model, "messages", len(messages))

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", ErrNoChoices
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// BatchEmbed implements the EmbeddingClient interface.
func (o *OpenAIClient) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts", ErrEmptyInput)
	}
	slog.Debug("Embedding batch via OpenAI", "model", o.embeddingModel, "texts", len(texts))

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.embeddingModel),
	})
	if err != nil {
		slog.Error("OpenAI embeddings call failed", "error", err)
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

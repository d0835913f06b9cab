// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/ProofSmith/services/llm"
	"github.com/AleutianAI/ProofSmith/services/prover/agents"
	"github.com/AleutianAI/ProofSmith/services/prover/leanrunner"
	"github.com/AleutianAI/ProofSmith/services/prover/rag"
	"github.com/AleutianAI/ProofSmith/services/prover/workflow"
)

var (
	rootCmd = &cobra.Command{
		Use:   "proofsmith",
		Short: "A CLI for automated Lean 4 theorem proving",
		Long: `ProofSmith synthesizes a Lean 4 implementation and correctness proof
from a task description and a template with {{code}} and {{proof}} slots,
iterating planning, generation, and compiler-driven repair.`,
	}

	templatePath string

	proveCmd = &cobra.Command{
		Use:   "prove [task description]",
		Short: "Synthesize and verify a Lean 4 implementation and proof",
		Long: `Runs the full proving workflow: retrieves context from the embedding
database, plans a strategy, generates code and proof, and verifies them
through the Lean compiler with bounded repair rounds.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProveCommand,
	}

	populateCmd = &cobra.Command{
		Use:   "populate",
		Short: "Populate the embedding database",
	}
	populateVectorDBCmd = &cobra.Command{
		Use:   "vectordb [file or directory path]",
		Short: "Ingest local text files into the embedding database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPopulateCommand,
	}
	populateWatchCmd = &cobra.Command{
		Use:   "watch [directory]",
		Short: "Watch a directory and ingest new or changed text files",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchCommand,
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Inspect the embedding database",
	}
	indexInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print metadata of the persisted embedding database",
		RunE:  runIndexInfoCommand,
	}
)

func init() {
	proveCmd.Flags().StringVarP(&templatePath, "template", "t", "", "path to the Lean task template (required)")
	_ = proveCmd.MarkFlagRequired("template")

	populateCmd.AddCommand(populateVectorDBCmd)
	populateCmd.AddCommand(populateWatchCmd)
	indexCmd.AddCommand(indexInfoCmd)

	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(populateCmd)
	rootCmd.AddCommand(indexCmd)
}

// buildIndex constructs the retrieval index with the configured dirs.
func buildIndex(ctx context.Context) (*rag.Index, error) {
	embedder, err := llm.NewOpenAIClient(config.Model)
	if err != nil {
		return nil, err
	}
	return rag.New(ctx, embedder,
		rag.WithDocumentsDir(config.DocumentsDir),
		rag.WithDBDir(config.DBDir),
		rag.WithEmbeddingModel(embedder.EmbeddingModel()),
	)
}

func runProveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	description := strings.Join(args, " ")

	templateBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	task := workflow.Task{
		Description: description,
		Template:    string(templateBytes),
	}
	if err := task.Validate(); err != nil {
		return err
	}

	mainClient, err := llm.NewOpenAIClient(config.Model)
	if err != nil {
		return err
	}
	verifierClient, err := llm.NewOpenAIClient(config.VerifierModel)
	if err != nil {
		return err
	}
	retryCfg := llm.DefaultRetryConfig()
	mainTransport := llm.NewRetryingClient(mainClient, retryCfg, nil)
	verifierTransport := llm.NewRetryingClient(verifierClient, retryCfg, nil)

	planner, err := agents.NewPlanningAgent(mainTransport, nil)
	if err != nil {
		return err
	}
	generator, err := agents.NewGenerationAgent(mainTransport, nil)
	if err != nil {
		return err
	}
	repairer, err := agents.NewVerificationAgent(verifierTransport, nil)
	if err != nil {
		return err
	}

	index, err := rag.New(ctx, mainClient,
		rag.WithDocumentsDir(config.DocumentsDir),
		rag.WithDBDir(config.DBDir),
		rag.WithEmbeddingModel(mainClient.EmbeddingModel()),
	)
	if err != nil {
		return err
	}

	runner, err := leanrunner.NewRunner(
		leanrunner.WithPlaygroundDir(config.PlaygroundDir),
		leanrunner.WithWorkingDir(config.LeanWorkingDir),
	)
	if err != nil {
		return err
	}

	cfg := workflow.DefaultConfig()
	cfg.MaxAttempts = config.MaxAttempts
	cfg.MaxVerificationRounds = config.MaxVerificationRounds
	wf, err := workflow.New(planner, generator, repairer, index, runner, cfg, nil)
	if err != nil {
		return err
	}

	result := wf.Run(ctx, task)

	out, err := json.MarshalIndent(map[string]string{
		"code":  result.Code,
		"proof": result.Proof,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.Success {
		fmt.Printf("Verified in %d attempt(s).\n", result.Attempts)
	} else {
		fmt.Printf("Not verified after %d attempt(s); best effort from stage %q.\n",
			result.Attempts, result.FinalStage)
	}
	return nil
}

func runPopulateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	index, err := buildIndex(ctx)
	if err != nil {
		return err
	}

	for _, root := range args {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(path, ".txt") {
				return nil
			}
			return ingestFile(ctx, index, path)
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("Index now holds %d chunks.\n", index.Count())
	return nil
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := buildIndex(ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := args[0]
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Info("Watching for new documents", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if err := ingestFile(ctx, index, event.Name); err != nil {
				slog.Warn("Failed to ingest document", "path", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func ingestFile(ctx context.Context, index *rag.Index, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := index.AddDocument(ctx, string(content), path); err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	slog.Info("Ingested document", "path", path, "total_chunks", index.Count())
	return nil
}

func runIndexInfoCommand(cmd *cobra.Command, args []string) error {
	index, err := buildIndex(cmd.Context())
	if err != nil {
		return err
	}
	meta := index.Metadata()
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

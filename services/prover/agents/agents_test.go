// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"

	"github.com/AleutianAI/ProofSmith/services/llm"
)

// fakeLLM is a scripted chat client shared by the stage adapter tests.
type fakeLLM struct {
	response     string
	err          error
	calls        int
	lastMessages []llm.Message
	lastParams   llm.GenerationParams
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	f.calls++
	f.lastMessages = messages
	f.lastParams = params
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

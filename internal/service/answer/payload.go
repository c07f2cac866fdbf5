package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
)

// parseAnswerPayload extracts the {"answer", "language"} object from model
// output. Models occasionally wrap JSON in a fenced code block or surround it
// with prose, so everything outside the outermost braces is ignored. Fields
// beyond answer and language are dropped.
func parseAnswerPayload(content string) (*orchestrator.AnswerResult, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("model returned empty output")
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("model output carries no JSON object")
	}

	var result orchestrator.AnswerResult
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}

	result.Answer = strings.TrimSpace(result.Answer)
	result.Language = strings.TrimSpace(result.Language)
	return &result, nil
}

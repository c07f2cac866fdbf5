package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/uttaranchal/gyandoot/backend/internal/config"
	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
)

// Service is the answer-generation capability: it runs the university
// knowledge prompt against the configured chat model and parses the
// structured answer it is instructed to emit.
type Service struct {
	chatModel  model.ChatModel
	chain      compose.Runnable[map[string]any, *schema.Message]
	slangChain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the query and slang-adaptation chains.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	queryTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	queryChain := compose.NewChain[map[string]any, *schema.Message]()
	queryChain.AppendChatTemplate(queryTemplate)
	queryChain.AppendChatModel(chatModel)

	runnable, err := queryChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query chain: %w", err)
	}

	slangTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{text}"),
	)

	slangChain := compose.NewChain[map[string]any, *schema.Message]()
	slangChain.AppendChatTemplate(slangTemplate)
	slangChain.AppendChatModel(chatModel)

	slangRunnable, err := slangChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile slang chain: %w", err)
	}

	return &Service{
		chatModel:  chatModel,
		chain:      runnable,
		slangChain: slangRunnable,
	}, nil
}

// Generate answers one query given the conversation so far. The model detects
// the query language itself and replies in kind.
func (s *Service) Generate(ctx context.Context, history []chat.Turn, query string) (*orchestrator.AnswerResult, error) {
	input := map[string]any{
		"system":  systemPrompt(),
		"history": buildHistoryMessages(history),
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run answer chain: %w", err)
	}

	result, err := parseAnswerPayload(response.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[answer] generated response language=%s length=%d", result.Language, len(result.Answer))
	return result, nil
}

// StreamDeltas answers one query like Generate but surfaces the model output
// incrementally: onDelta receives each content chunk as it arrives. The
// assembled output is parsed and validated once the stream completes.
func (s *Service) StreamDeltas(ctx context.Context, history []chat.Turn, query string, onDelta func(delta string)) (*orchestrator.AnswerResult, error) {
	input := map[string]any{
		"system":  systemPrompt(),
		"history": buildHistoryMessages(history),
		"query":   query,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream answer chain: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, fmt.Errorf("failed to receive answer delta: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble streamed answer: %w", err)
	}

	result, err := parseAnswerPayload(response.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[answer] streamed response language=%s length=%d", result.Language, len(result.Answer))
	return result, nil
}

// AdaptToRegionalSlang rewrites text with regional idiom for the given
// language and region.
func (s *Service) AdaptToRegionalSlang(ctx context.Context, text, language, region string) (string, error) {
	input := map[string]any{
		"system": slangSystemPrompt(language, region),
		"text":   text,
	}

	response, err := s.slangChain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run slang chain: %w", err)
	}

	return response.Content, nil
}

// buildHistoryMessages maps session turns onto model roles. The full history
// is forwarded: the upstream contract is that it matches the displayed
// conversation with no gaps.
func buildHistoryMessages(history []chat.Turn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleBot:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return messages
}

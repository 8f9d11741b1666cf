package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/metrics"
)

const extractorName = "llm"

const extractionPrompt = `You extract named entities from questions about the Cyberpunk universe.
Return only a JSON array of strings with every person, character, place, district,
corporation, gang, organization, product and event named in the question.
Return [] when there are none. No prose.`

// ExtractorConfig holds the chat model settings for entity extraction.
type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// EntityExtractor asks a chat model to list the entities in a query.
type EntityExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewEntityExtractor creates an LLM-backed entity extractor.
func NewEntityExtractor(cfg *ExtractorConfig) *EntityExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityExtractor{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		logger: logger,
	}
}

// Extract implements domain.EntityExtractor.
func (x *EntityExtractor) Extract(ctx context.Context, text string) (domain.EntitySet, error) {
	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: x.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		metrics.EntityExtractionsTotal.WithLabelValues(extractorName, "error").Inc()
		return nil, parseAPIError("entity extraction", err, domain.ErrEntityExtraction)
	}
	if len(resp.Choices) == 0 {
		metrics.EntityExtractionsTotal.WithLabelValues(extractorName, "error").Inc()
		return nil, fmt.Errorf("empty chat response: %w", domain.ErrEntityExtraction)
	}

	names, err := parseEntityList(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.EntityExtractionsTotal.WithLabelValues(extractorName, "error").Inc()
		x.logger.Debug("Unparseable entity list", zap.String("content", resp.Choices[0].Message.Content))
		return nil, err
	}

	metrics.EntityExtractionsTotal.WithLabelValues(extractorName, "success").Inc()
	return domain.NewEntitySet(names...), nil
}

// parseEntityList reads the first JSON array in a model reply. Models often
// wrap it in a code fence or a sentence.
func parseEntityList(content string) ([]string, error) {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply: %w", domain.ErrEntityExtraction)
	}
	var names []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &names); err != nil {
		return nil, fmt.Errorf("decode entity list: %v: %w", err, domain.ErrEntityExtraction)
	}
	return names, nil
}

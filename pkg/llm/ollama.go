package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/refactor-swarm/swarm/pkg/prompts"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// OllamaBrain implements Brain against a local Ollama server using the native
// client. Responses are accumulated from the streaming callback; generation
// is bounded by the configured timeout.
type OllamaBrain struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
	logger  *utils.Logger
}

// OllamaOptions configures an OllamaBrain.
type OllamaOptions struct {
	Model     string
	ServerURL string // empty means OLLAMA_HOST / default environment
	Timeout   time.Duration
	Logger    *utils.Logger
}

// NewOllamaBrain creates the default reasoning provider.
func NewOllamaBrain(opts OllamaOptions) (*OllamaBrain, error) {
	var client *ollama.Client
	if opts.ServerURL != "" {
		base, err := url.Parse(opts.ServerURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama server URL: %w", err)
		}
		client = ollama.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &OllamaBrain{
		client:  client,
		model:   opts.Model,
		timeout: timeout,
		logger:  opts.Logger,
	}, nil
}

// ProducePlan asks the model for a remediation plan and validates it against
// the strict item schema. A schema mismatch triggers exactly one corrective
// re-prompt before the response is rejected.
func (b *OllamaBrain) ProducePlan(ctx context.Context, report string) ([]FileActionItem, error) {
	messages := []ollama.Message{
		{Role: "system", Content: prompts.AuditorSystem()},
		{Role: "user", Content: prompts.AuditorUser(report)},
	}

	raw, err := b.chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	plan, parseErr := ParsePlan(raw)
	if parseErr == nil {
		return plan, nil
	}

	var schemaErr *SchemaError
	if !errors.As(parseErr, &schemaErr) {
		return nil, parseErr
	}

	if b.logger != nil {
		b.logger.Logf("Plan response rejected, re-prompting: %v", schemaErr)
	}

	// One corrective retry with the rejection reason, then give up
	messages = append(messages,
		ollama.Message{Role: "assistant", Content: raw},
		ollama.Message{Role: "user", Content: prompts.SchemaRetry(schemaErr.Reason)},
	)
	raw, err = b.chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	return ParsePlan(raw)
}

// ApplyFix asks the model for the corrected content of one file.
func (b *OllamaBrain) ApplyFix(ctx context.Context, item FileActionItem, contents string, feedback string) (string, error) {
	messages := []ollama.Message{
		{Role: "system", Content: prompts.FixerSystem()},
		{Role: "user", Content: prompts.FixerUser(item.Path, item.Category, item.Severity, item.Description, contents, feedback)},
	}

	raw, err := b.chat(ctx, messages)
	if err != nil {
		return "", err
	}

	fixed := ExtractCodeBlock(raw)
	if strings.TrimSpace(fixed) == "" {
		return "", fmt.Errorf("model returned empty content for %s", item.Path)
	}
	return fixed, nil
}

func (b *OllamaBrain) chat(ctx context.Context, messages []ollama.Message) (string, error) {
	chatCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	stream := false
	req := &ollama.ChatRequest{
		Model:    strings.TrimPrefix(b.model, "ollama:"),
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": 0.1, // Very low for consistency
			"top_p":       0.9,
		},
	}

	var content strings.Builder
	respFunc := func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	}

	if err := b.client.Chat(chatCtx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return content.String(), nil
}

package cluster

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/siherrmann/paperdex/helper"
)

// Labeler generates a short human readable topic name from representative
// paper titles.
type Labeler interface {
	Label(ctx context.Context, titles []string) (string, error)
}

const defaultLabelModel = "claude-3-5-haiku-latest"
const labelMaxTokens = 64

// ClaudeLabeler generates cluster names with the Anthropic Messages API.
type ClaudeLabeler struct {
	client anthropic.Client
	model  anthropic.Model
}

// Compiler check that ClaudeLabeler implements Labeler.
var _ Labeler = (*ClaudeLabeler)(nil)

// NewClaudeLabeler returns a labeler authenticated with the given API key.
// An empty model falls back to a current default.
func NewClaudeLabeler(apiKey string, modelName string) (*ClaudeLabeler, error) {
	if apiKey == "" {
		return nil, helper.NewError("NewClaudeLabeler", fmt.Errorf("api key must not be empty"))
	}
	model := anthropic.Model(modelName)
	if modelName == "" {
		model = defaultLabelModel
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &ClaudeLabeler{client: client, model: model}, nil
}

// Label asks the model for a topic name of at most a few words.
func (l *ClaudeLabeler) Label(ctx context.Context, titles []string) (string, error) {
	if len(titles) == 0 {
		return "", helper.NewError("Label", fmt.Errorf("titles must not be empty"))
	}

	prompt := fmt.Sprintf(
		"These academic paper titles belong to one topic cluster:\n\n%v\n\nReply with a short topic name of 2 to 4 words. Reply with the name only, no punctuation or explanation.",
		"- "+strings.Join(titles, "\n- "))

	params := anthropic.MessageNewParams{
		Model:     l.model,
		MaxTokens: labelMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := l.client.Messages.New(ctx, params)
	if err != nil {
		return "", helper.NewError("Label", err)
	}

	var label strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			label.WriteString(block.Text)
		}
	}

	name := strings.TrimSpace(label.String())
	if name == "" {
		return "", helper.NewError("Label", fmt.Errorf("empty label response"))
	}
	return name, nil
}

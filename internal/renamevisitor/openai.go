package renamevisitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
)

// openAIVisitor drives chat completions directly against an openai.Client,
// grounded on the request/response shape the teacher's
// llmcomplete/open_ai.go builds (ChatCompletionNewParams, SystemMessage/
// UserMessage, reading choice.Message.Content back out), but trimmed to the
// single-shot, JSON-in/JSON-out contract Propose needs instead of the
// teacher's multi-turn Conversation abstraction.
type openAIVisitor struct {
	client openai.Client
	model  string
	temp   float64
}

// Option configures an OpenAI-backed Visitor.
type Option func(*openAIVisitor)

// WithTemperature overrides the sampling temperature used for proposal
// requests.
func WithTemperature(t float64) Option {
	return func(v *openAIVisitor) { v.temp = t }
}

// NewOpenAIVisitor returns a Visitor that asks model, via client, to propose
// replacement names for a batch of identifiers given rendered context.
func NewOpenAIVisitor(client openai.Client, model string, opts ...Option) Visitor {
	v := &openAIVisitor{client: client, model: model, temp: -1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

const systemPrompt = `You rename short, obfuscated JavaScript identifiers to clear, descriptive names.
You will be given the current names in a batch and the surrounding source as context.
Reply with a single JSON object mapping each original name to its proposed replacement.
Only include names you have a confident, better replacement for; omit names you'd leave unchanged.
Replacement names must be valid JavaScript identifiers and must not collide with each other.`

func (v *openAIVisitor) Propose(names []string, context string) (map[string]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var userPrompt strings.Builder
	userPrompt.WriteString("Identifiers to rename: ")
	userPrompt.WriteString(strings.Join(names, ", "))
	userPrompt.WriteString("\n\nContext:\n")
	userPrompt.WriteString(context)

	request := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt.String()),
		},
	}
	if v.temp >= 0 {
		request.Temperature = openai.Float(v.temp)
	}

	resp, err := v.client.Chat.Completions.New(context.Background(), request)
	if err != nil {
		return nil, fmt.Errorf("renamevisitor: chat completion: %w", err)
	}
	if len(resp.Choices) != 1 {
		return nil, fmt.Errorf("renamevisitor: unexpected choices length: %d", len(resp.Choices))
	}

	text := resp.Choices[0].Message.Content
	proposals, err := parseProposals(text)
	if err != nil {
		return nil, fmt.Errorf("renamevisitor: parsing model response: %w", err)
	}
	return proposals, nil
}

// parseProposals extracts the JSON object from text, tolerating a
// surrounding ```json fenced code block the way chat models commonly wrap
// structured replies.
func parseProposals(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, err
	}
	return out, nil
}

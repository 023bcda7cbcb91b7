// Package agent turns retrieved passages into in-character chat replies via
// an OpenAI-compatible chat completion endpoint. The agent holds no
// conversation state: history travels with every request.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no chat model is configured.
const DefaultModel = "gpt-4o-mini"

// RoleUser and RoleBot tag the speakers of prior turns.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is one prior conversation entry, oldest first.
type Turn struct {
	Role string
	Text string
}

// Request carries everything a reply depends on.
type Request struct {
	Character string
	History   []Turn
	UserInput string
	Passages  []string
}

// Config configures the chat client.
type Config struct {
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// Agent produces replies in the voice of a fictional character, grounded on
// passages retrieved from the uploaded books.
type Agent struct {
	client      *openai.Client
	model       string
	temperature float32
}

// New creates the agent. The API key is read from the configured environment
// variable (default OPENAI_API_KEY).
func New(cfg Config) (*Agent, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("agent: missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &Agent{client: openai.NewClientWithConfig(cc), model: cfg.Model, temperature: 0.7}, nil
}

// Reply returns the character's spoken answer to the request.
func (a *Agent) Reply(ctx context.Context, req Request) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("agent: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("agent: no completion returned")
	}
	return StripReasoning(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

// StripReasoning drops any chain-of-thought preamble some models emit before
// a closing </think> tag.
func StripReasoning(reply string) string {
	if _, after, found := strings.Cut(reply, "</think>"); found {
		return strings.TrimSpace(after)
	}
	return reply
}

func buildPrompt(req Request) string {
	character := req.Character
	if character == "" {
		character = "Unknown Character"
	}

	var transcript strings.Builder
	for _, t := range req.History {
		speaker := "You"
		if t.Role == RoleBot {
			speaker = character
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, t.Text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a fictional character from the uploaded books.\n\n", character)
	b.WriteString("Instructions:\n")
	fmt.Fprintf(&b, "- Respond ONLY as %s using natural spoken dialogue.\n", character)
	b.WriteString("- NEVER include thoughts, reasoning, planning, actions, gestures, or stage directions.\n")
	b.WriteString("- Do NOT describe emotions or body language; express them only through spoken words if needed.\n")
	b.WriteString("- Do NOT act as an AI or assistant.\n")
	b.WriteString("- Use book context if relevant, but never invent facts outside the book.\n")
	b.WriteString("- If asked something outside your knowledge, respond as the character would.\n\n")
	fmt.Fprintf(&b, "Previous conversation:\n%s\n", transcript.String())
	fmt.Fprintf(&b, "Current user message:\n%s\n\n", req.UserInput)
	fmt.Fprintf(&b, "Book context:\n%s\n\n", strings.Join(req.Passages, "\n"))
	fmt.Fprintf(&b, "Output ONLY the words %s would say aloud.\n", character)
	return b.String()
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one prompt to completion
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Ping checks that the provider is configured and reachable
	Ping(ctx context.Context) error
}

// CompletionRequest contains the input for one generation
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // Provider default when empty
	MaxTokens int
}

// CompletionResponse contains the generated text
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	Timeout   int // seconds
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 400,
	}
}

const systemPrompt = "You explain to researchers why a journal suits their manuscript. " +
	"Use only the facts given. Do not invent metrics, rankings, acceptance rates or URLs."

// maxPromptAbstract bounds the abstract runes placed in a prompt
const maxPromptAbstract = 1500

// BuildPrompt constructs the user prompt for one venue explanation
func BuildPrompt(req explain.Request) string {
	var b strings.Builder
	v := req.Venue

	b.WriteString("Manuscript abstract:\n")
	b.WriteString(model.TruncateRunes(strings.TrimSpace(req.Abstract), maxPromptAbstract))
	b.WriteString("\n\nCandidate venue:\n")
	fmt.Fprintf(&b, "- Name: %s\n", v.Name)
	if v.Publisher != "" {
		fmt.Fprintf(&b, "- Publisher: %s\n", v.Publisher)
	}
	if len(v.Topics) > 0 {
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(v.Topics, ", "))
	}
	if v.Category != "" {
		fmt.Fprintf(&b, "- Category: %s\n", v.Category)
	}
	if v.MatchReason != "" {
		fmt.Fprintf(&b, "- Why it was suggested: %s\n", v.MatchReason)
	}
	if v.OpenAccess {
		b.WriteString("- Open access: yes\n")
	}

	b.WriteString("\nIn 2-3 sentences, explain how the manuscript fits this venue's scope. ")
	b.WriteString("If the fit is weak, say so plainly.")
	return b.String()
}

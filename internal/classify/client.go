package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// DefaultModelID is the default Bedrock model for categorization.
	DefaultModelID = "anthropic.claude-haiku-4-5-20251001-v1:0"
	// anthropicVersion is the required API version for Claude on Bedrock.
	anthropicVersion = "bedrock-2023-05-31"
	// responseTokensPerEmail sizes max_tokens to the batch.
	responseTokensPerEmail = 8
	// minResponseTokens is the floor for max_tokens.
	minResponseTokens = 256
)

// ErrNoStructuredOutput reports that the model produced no parseable
// category list at all. Distinct from an empty list, which is valid
// only for empty input.
var ErrNoStructuredOutput = errors.New("classification engine returned no structured output")

// ClassificationError wraps a failure to obtain categories from the
// model, preserving the raw model text for diagnostics.
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// EmailSummary is the classification view of one email.
type EmailSummary struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// BedrockInvoker abstracts Bedrock model invocation for dependency
// inversion.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds configuration for the classifier.
type Config struct {
	ModelID string
}

// BedrockClassifier categorizes email batches via Bedrock Claude.
type BedrockClassifier struct {
	client  BedrockInvoker
	modelID string
}

// NewBedrockClassifier creates a new BedrockClassifier.
func NewBedrockClassifier(client BedrockInvoker, cfg Config) *BedrockClassifier {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &BedrockClassifier{client: client, modelID: modelID}
}

// claudeRequest is the Claude Messages API request format for Bedrock.
type claudeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

// message represents a message in the Claude Messages API.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the Claude Messages API response format.
type claudeResponse struct {
	Content []contentBlock `json:"content"`
}

// contentBlock represents a content block in the response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// categoriesPayload is the structured output demanded from the model.
type categoriesPayload struct {
	Categories []string `json:"categories"`
}

const promptHeader = `You are an email categorization expert. Given a list of emails, you will categorize each email into one of the following categories: Promotions, Social, Updates, Forums, Purchases, Travel, Other.

Return a JSON object of the form {"categories": [...]} with one category per input email, in the same order as the input emails. Do not include any other text in your response.

Here are the emails:
`

// Categorize submits the whole batch in a single model invocation and
// returns one category per input email, by position. It never chunks
// internally; very large batches are a caller concern.
//
// Returned labels are sanitized into the closed set. When the model
// answers with fewer labels than inputs, the missing positions default
// to Other instead of failing the emails it did cover.
func (c *BedrockClassifier) Categorize(ctx context.Context, emails []EmailSummary) ([]Category, error) {
	if len(emails) == 0 {
		return []Category{}, nil
	}

	prompt := buildPrompt(emails)
	maxTokens := len(emails) * responseTokensPerEmail
	if maxTokens < minResponseTokens {
		maxTokens = minResponseTokens
	}

	reqBody, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	modelID := c.modelID
	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId: &modelID,
		Body:    reqBody,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var resp claudeResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, &ClassificationError{Err: ErrNoStructuredOutput}
	}

	raw := resp.Content[0].Text
	payload, err := parseCategories(raw)
	if err != nil {
		return nil, &ClassificationError{Raw: raw, Err: err}
	}

	categories := make([]Category, len(emails))
	for i := range emails {
		if i < len(payload.Categories) {
			categories[i] = SanitizeCategory(payload.Categories[i])
		} else {
			categories[i] = CategoryOther
		}
	}
	return categories, nil
}

// buildPrompt enumerates the batch for the model.
func buildPrompt(emails []EmailSummary) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, e := range emails {
		b.WriteString("Subject: ")
		b.WriteString(e.Subject)
		b.WriteString("\nSender: ")
		b.WriteString(e.Sender)
		b.WriteString("\nBody: ")
		b.WriteString(e.Body)
		b.WriteString("\n---\n")
	}
	return b.String()
}

// parseCategories extracts the categories object from the model text,
// tolerating surrounding prose or code fences.
func parseCategories(text string) (*categoriesPayload, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoStructuredOutput
	}

	var payload categoriesPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, ErrNoStructuredOutput
	}
	if payload.Categories == nil {
		return nil, ErrNoStructuredOutput
	}
	return &payload, nil
}

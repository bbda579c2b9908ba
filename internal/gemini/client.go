// Package gemini generates automatic bot replies with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/chatdesk/internal/config"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/text"
)

// Client generates a bot's next message from the conversation history.
type Client interface {
	GenerateReply(ctx context.Context, botName string, history []database.Message) (string, error)
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
	window           text.Window
}

// NewClient creates a Gemini client. httpOpts may override the API endpoint.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger, httpOpts ...genai.HTTPOptions) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if len(httpOpts) > 0 {
		clientCfg.HTTPOptions = httpOpts[0]
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		window:           text.Window{MaxTokens: cfg.MaxContextTokens},
	}, nil
}

// BuildContents maps history to Gemini turns: the bot's own messages are model turns,
// the operator's are user turns. Empty messages are skipped.
func BuildContents(history []database.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.SenderType == database.SenderOther {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func (c *sdkClient) withBotHeader(botName string) *genai.GenerateContentConfig {
	copyCfg := *c.contentConfig
	header := fmt.Sprintf(ReplySystemInstructionHeader, botName)

	var existingText string
	if c.contentConfig.SystemInstruction != nil && len(c.contentConfig.SystemInstruction.Parts) > 0 {
		existingText = c.contentConfig.SystemInstruction.Parts[0].Text
	}
	copyCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: header + existingText}}}
	return &copyCfg
}

// GenerateReply asks Gemini for the bot's next message.
func (c *sdkClient) GenerateReply(ctx context.Context, botName string, history []database.Message) (string, error) {
	contents := BuildContents(c.window.Select(history))
	if len(contents) == 0 {
		return "", errors.New("no history to reply to")
	}
	c.log.DebugContext(ctx, "Generating reply", "bot", botName, "message_count", len(contents), "history_size", len(history))

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.withBotHeader(botName))
	if err != nil {
		return "", err
	}
	raw, err := c.extractText(ctx, resp)
	if err != nil {
		return "", err
	}
	reply, err := text.Sanitize(raw, botName)
	if err != nil {
		return "", fmt.Errorf("unusable reply: %w", err)
	}
	return reply, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		code := apiErrorCode(err)
		if code != 500 && code != 503 {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == c.maxRetries {
			break
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call", "attempt", i+1, "delay", c.retryDelay, "code", code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, err)
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.WarnContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("reply blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = string(resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("reply returned no content, finish reason: %s", finishReason)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errors.New("reply returned empty text")
	}
	return out, nil
}

// apiErrorCode returns the HTTP status of a genai API error, or 0.
func apiErrorCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

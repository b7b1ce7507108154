package ai

import (
	"context"
	"fmt"
	"strings"

	"social-stack/internal/models"
	"social-stack/shared/config"

	"google.golang.org/genai"
)

// ScriptWriter produces short marketing scripts for product videos using
// Gemini. Callers must treat any failure as non-fatal and fall back to the
// product title, since downstream steps require a non-empty script.
type ScriptWriter struct {
	client *genai.Client
	model  string
}

func NewScriptWriter(cfg *config.AIConfig) (*ScriptWriter, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &ScriptWriter{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Generate returns a spoken-word script for a 30-second product video.
func (s *ScriptWriter) Generate(ctx context.Context, product *models.ProductRow) (string, error) {
	if product == nil {
		return "", fmt.Errorf("product cannot be nil")
	}
	if product.Title == "" {
		return "", fmt.Errorf("product title is required")
	}

	prompt := s.buildPrompt(product)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate script for %s: %w", product.ProductID, err)
	}

	script := strings.TrimSpace(result.Text())
	if script == "" {
		return "", fmt.Errorf("empty script response for %s", product.ProductID)
	}

	return script, nil
}

func (s *ScriptWriter) buildPrompt(product *models.ProductRow) string {
	var b strings.Builder
	b.WriteString("Write a friendly, spoken-word script for a 30-second social media video promoting this product. ")
	b.WriteString("Keep it under 80 words, conversational, and end with a short call to action. ")
	b.WriteString("Return only the script text, no stage directions or quotes.\n\n")
	fmt.Fprintf(&b, "Product: %s\n", product.Title)
	if product.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", truncateString(product.Description, 500))
	}
	return b.String()
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}

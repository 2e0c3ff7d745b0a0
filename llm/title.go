package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const DefaultTitle = "New Chat"

var titleCleaner = regexp.MustCompile(`[^a-zA-Z0-9 ':,;-]+`)

// GenerateChatTitle asks the model for a short session title. Any failure
// falls back to DefaultTitle alongside the error.
func GenerateChatTitle(ctx context.Context, c Completer, model, userMessage string) (string, error) {
	out, err := c.Complete(ctx, CompletionRequest{
		Model:       model,
		MaxTokens:   20,
		Temperature: 0.3,
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a helpful assistant that generates short, descriptive titles for financial planning chat conversations. Keep it under 5 words using only alphanumeric characters."},
			{Role: RoleUser, Content: fmt.Sprintf("Create a short title for this chat: %q", userMessage)},
		},
	})
	if err != nil {
		return DefaultTitle, err
	}
	title := strings.TrimSpace(cleanString(out))
	if title == "" {
		return DefaultTitle, nil
	}
	return title, nil
}

func cleanString(input string) string {
	return titleCleaner.ReplaceAllString(input, "")
}

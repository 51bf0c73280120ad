// Command unichat streams a chat completion against any configured backend
// from the terminal. It is a demonstration of the dispatch service wired
// end to end: provider selection, credential resolution from the
// environment, streamed output, and a performance summary.
//
// Usage:
//
//	unichat -provider anthropic -model claude-sonnet-4-5 "Why is the sky blue?"
//	unichat -provider openai -model gpt-4o -thinking "Prove sqrt(2) is irrational"
//	unichat -provider antigravity -model gemini-3-pro -list-models
//
// Credentials come from ANTHROPIC_API_KEY, OPENAI_API_KEY, or
// ANTIGRAVITY_ACCESS_TOKEN (plus ANTIGRAVITY_PROJECT_ID), loaded from a .env
// file when one is present.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mossgowild/unify-chat-provider/core/dispatch"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/observability"
	"github.com/mossgowild/unify-chat-provider/providers/observability/slogobs"
)

func main() {
	providerType := flag.String("provider", "anthropic", "backend type: anthropic, openai, or antigravity")
	model := flag.String("model", "", "model identifier (required unless -list-models)")
	baseURL := flag.String("base-url", "", "override the backend base URL")
	system := flag.String("system", "", "system prompt")
	thinking := flag.Bool("thinking", false, "enable extended thinking")
	listModels := flag.Bool("list-models", false, "list the backend's models and exit")
	verbose := flag.Bool("verbose", false, "log request lifecycle to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slogobs.LevelTrace
	}
	observer := slogobs.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.ContextWithLogger(ctx, observer)
	ctx, span := observer.StartSpan(ctx, "unichat")
	defer span.End()

	if err := run(ctx, *providerType, *model, *baseURL, *system, *thinking, *listModels, flag.Args()); err != nil {
		observer.Error(ctx, "request failed", observability.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, providerType, model, baseURL, system string, thinking, listModels bool, args []string) error {
	config := dispatch.ProviderConfig{
		Type:    providerType,
		Name:    providerType,
		BaseURL: baseURL,
		Project: os.Getenv("ANTIGRAVITY_PROJECT_ID"),
		Models:  []string{model},
	}

	service := dispatch.NewService(dispatch.StaticConfigs{config}, envCredentials{})

	if listModels {
		models, err := service.ListModels(ctx, config)
		if err != nil {
			return err
		}
		for _, info := range models {
			fmt.Printf("%-50s %s\n", info.ID, info.DisplayName)
		}
		return nil
	}

	if model == "" {
		return fmt.Errorf("-model is required")
	}
	prompt := strings.Join(args, " ")
	if prompt == "" {
		return fmt.Errorf("no prompt given")
	}

	request := ai.ChatRequest{
		Model:        model,
		SystemPrompt: system,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart(prompt)}},
		},
	}
	if thinking {
		request.Thinking = &ai.ThinkingConfig{Enabled: true}
	}

	stream, trace, err := service.StreamChat(ctx, request)
	if err != nil {
		return err
	}

	var usage *ai.Usage
	for event, err := range stream.Iter() {
		if err != nil {
			fmt.Println()
			return err
		}

		switch event.Type {
		case ai.StreamEventContent:
			fmt.Print(event.Content)
		case ai.StreamEventThinkingDelta:
			fmt.Fprint(os.Stderr, event.Content)
		case ai.StreamEventPart:
			if event.Part != nil && event.Part.Type == ai.ContentTypeToolCall && event.Part.ToolCall != nil {
				fmt.Fprintf(os.Stderr, "\n[tool call] %s(%s)\n", event.Part.ToolCall.Name, string(event.Part.ToolCall.Input))
			}
		case ai.StreamEventUsage:
			usage = event.Usage
		}
	}
	fmt.Println()

	fmt.Fprintf(os.Stderr, "\nfirst token %v, total %v", trace.TimeToFirstToken().Round(time.Millisecond), trace.TotalDuration().Round(time.Millisecond))
	if usage != nil {
		fmt.Fprintf(os.Stderr, ", %d prompt + %d completion tokens (%.1f tok/s)",
			usage.PromptTokens, usage.CompletionTokens, trace.TokensPerSecond())
	}
	fmt.Fprintln(os.Stderr)

	return nil
}

// envCredentials resolves credentials from the process environment based on
// the provider type.
type envCredentials struct{}

func (envCredentials) Resolve(_ context.Context, config dispatch.ProviderConfig) (string, error) {
	var variable string
	switch config.Type {
	case dispatch.ProviderTypeAnthropic:
		variable = "ANTHROPIC_API_KEY"
	case dispatch.ProviderTypeOpenAI:
		variable = "OPENAI_API_KEY"
	case dispatch.ProviderTypeAntigravity:
		variable = "ANTIGRAVITY_ACCESS_TOKEN"
	default:
		return "", fmt.Errorf("no credential source for provider type %q", config.Type)
	}

	credential := os.Getenv(variable)
	if credential == "" {
		return "", fmt.Errorf("%s is not set", variable)
	}
	return credential, nil
}

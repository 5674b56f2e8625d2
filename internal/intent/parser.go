// Package intent turns free-form user prompts into structured transaction
// intents. The model is only allowed to emit intents whose every field is
// stated in the prompt; anything ambiguous comes back empty so the caller
// can ask the user instead of guessing.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stark-wallet/internal/domain"
)

// Parser extracts transaction intents from a prompt.
type Parser interface {
	Parse(ctx context.Context, prompt string) ([]domain.TransactionIntent, error)
}

const systemPrompt = `You convert user messages about their wallet into tool calls.
Call a tool only when the user explicitly states every argument.
Never infer, assume or invent destinations, amounts or token symbols.
If anything required is missing or ambiguous, call no tools at all.`

const (
	toolTransfer = "create_transfer"
	toolSwap     = "create_swap"
)

// OpenAIParser parses prompts with an OpenAI chat model and function tools.
type OpenAIParser struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIParser creates a parser. model may be empty to use gpt-4o.
func NewOpenAIParser(apiKey, model string, logger zerolog.Logger) *OpenAIParser {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIParser{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger.With().Str("component", "intent").Logger(),
	}
}

var _ Parser = (*OpenAIParser)(nil)

func tools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolTransfer,
			Description: openai.String("Send a token to an explicitly stated destination address."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"destination": map[string]any{
						"type":        "string",
						"description": "Destination address exactly as the user wrote it.",
					},
					"amount": map[string]any{
						"type":        "string",
						"description": "Decimal amount exactly as the user wrote it.",
					},
					"symbol": map[string]any{
						"type":        "string",
						"description": "Token symbol, e.g. ETH or USDC.",
					},
				},
				"required": []string{"destination", "amount", "symbol"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        toolSwap,
			Description: openai.String("Swap one token for another within the same wallet."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"sellSymbol": map[string]any{
						"type":        "string",
						"description": "Symbol of the token being sold.",
					},
					"buySymbol": map[string]any{
						"type":        "string",
						"description": "Symbol of the token being bought.",
					},
					"amount": map[string]any{
						"type":        "string",
						"description": "Decimal amount of the sell token.",
					},
				},
				"required": []string{"sellSymbol", "buySymbol", "amount"},
			},
		}),
	}
}

// Parse returns the intents stated in the prompt, in order. An empty slice
// with a nil error means the prompt did not contain an actionable request.
func (p *OpenAIParser) Parse(ctx context.Context, prompt string) ([]domain.TransactionIntent, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Tools: tools(),
	})
	if err != nil {
		return nil, fmt.Errorf("intent completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	var intents []domain.TransactionIntent
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		in, err := decodeToolCall(tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			p.logger.Warn().Err(err).Str("tool", tc.Function.Name).Msg("discarding malformed tool call")
			continue
		}
		intents = append(intents, in)
	}
	return intents, nil
}

func decodeToolCall(name, args string) (domain.TransactionIntent, error) {
	switch name {
	case toolTransfer:
		var raw struct {
			Destination string `json:"destination"`
			Amount      string `json:"amount"`
			Symbol      string `json:"symbol"`
		}
		if err := json.Unmarshal([]byte(args), &raw); err != nil {
			return nil, fmt.Errorf("transfer args: %w", err)
		}
		amount, err := decimal.NewFromString(raw.Amount)
		if err != nil {
			return nil, fmt.Errorf("transfer amount %q: %w", raw.Amount, err)
		}
		if raw.Destination == "" || raw.Symbol == "" {
			return nil, fmt.Errorf("transfer args incomplete")
		}
		return domain.TransferIntent{
			Destination: raw.Destination,
			Amount:      amount,
			Asset:       raw.Symbol,
		}, nil

	case toolSwap:
		var raw struct {
			SellSymbol string `json:"sellSymbol"`
			BuySymbol  string `json:"buySymbol"`
			Amount     string `json:"amount"`
		}
		if err := json.Unmarshal([]byte(args), &raw); err != nil {
			return nil, fmt.Errorf("swap args: %w", err)
		}
		amount, err := decimal.NewFromString(raw.Amount)
		if err != nil {
			return nil, fmt.Errorf("swap amount %q: %w", raw.Amount, err)
		}
		if raw.SellSymbol == "" || raw.BuySymbol == "" {
			return nil, fmt.Errorf("swap args incomplete")
		}
		return domain.SwapIntent{
			SellAsset:  raw.SellSymbol,
			BuyAsset:   raw.BuySymbol,
			SellAmount: amount,
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

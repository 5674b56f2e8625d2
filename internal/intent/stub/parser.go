// Package stub provides a canned intent parser for tests.
package stub

import (
	"context"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/intent"
)

// Parser returns the configured intents for every prompt.
type Parser struct {
	Intents []domain.TransactionIntent
	Err     error

	Prompts []string
}

var _ intent.Parser = (*Parser)(nil)

func (p *Parser) Parse(ctx context.Context, prompt string) ([]domain.TransactionIntent, error) {
	p.Prompts = append(p.Prompts, prompt)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Intents, nil
}

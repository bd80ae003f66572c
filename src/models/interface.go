package models

import "context"

// Agent is the narrow contract the orchestrator depends on: a rendered
// prompt in, generated text out. Implementations wrap remote model
// APIs; test doubles substitute freely.
type Agent interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Generator abstracts a text-generation provider that answers with JSON.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single structured-output generation call.
type GenerateRequest struct {
	SystemInstruction string
	Contents          string
	Schema            *Schema
	// Documents are sent beside Contents as additional user parts.
	Documents []Document
}

// Document is a named chunk of source text.
type Document struct {
	Name string
	Text string
}

var (
	// ErrNotImplemented is returned by the placeholder generator.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrProvider marks transport and remote service failures.
	ErrProvider = errors.New("llm provider error")
)

// ProviderError carries the provider name and, when known, the HTTP status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports ErrProvider for every ProviderError.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// PlaceholderGenerator is used when no provider is configured.
type PlaceholderGenerator struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}

var _ Generator = PlaceholderGenerator{}

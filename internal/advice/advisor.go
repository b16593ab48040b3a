package advice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
)

const (
	// Fallback replaces the answer when the provider call fails.
	Fallback = "There was an error processing your request. Please try again later."
	// NoAnswer replaces an empty answer.
	NoAnswer = "Sorry, I couldn't fetch an answer at the moment."
)

// SingaporeContext is the system instruction sent with every prompt.
const SingaporeContext = "You are a helpful financial assistant for people in Singapore. " +
	"Give advice that's relevant to Singapore's context, mentioning local services, " +
	"costs, and regulations where appropriate. Focus on practical financial advice " +
	"for living in Singapore. Make the response short and concise, maximum 2 paragraphs."

var ErrEmptyResponse = errors.New("empty response from provider")

// Provider is a generative text backend.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Advisor wraps a Provider so that callers always get sanitized, non-empty
// text back within a bounded time.
type Advisor struct {
	provider Provider
	timeout  time.Duration
}

func NewAdvisor(provider Provider, timeout time.Duration) *Advisor {
	return &Advisor{provider: provider, timeout: timeout}
}

// Advise answers prompt, substituting Fallback or NoAnswer on failure.
func (a *Advisor) Advise(ctx context.Context, prompt string) string {
	answer, err := a.ask(ctx, prompt)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return NoAnswer
	case err != nil:
		return Fallback
	}
	return answer
}

// AdviseOr answers prompt, substituting fallback on any failure.
func (a *Advisor) AdviseOr(ctx context.Context, prompt, fallback string) string {
	answer, err := a.ask(ctx, prompt)
	if err != nil {
		return fallback
	}
	return answer
}

func (a *Advisor) ask(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.provider.Complete(ctx, SingaporeContext, prompt)
	if err != nil {
		logger.Get().Error("advice provider failed", zap.Error(err))
		return "", fmt.Errorf("complete: %w", err)
	}
	answer := Sanitize(raw)
	if answer == "" {
		logger.Get().Warn("advice provider returned no text")
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// TipPrompt asks for a one-line tip about a spending category.
func TipPrompt(category string) string {
	return fmt.Sprintf("Provide a one-line financial tip for someone spending a lot on %s", category)
}

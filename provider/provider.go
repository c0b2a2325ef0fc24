// Package provider defines the translation provider contract, the
// categorized failure taxonomy, and an HTTP client for OpenAI-compatible
// chat endpoints. Providers perform exactly one network call per Translate;
// all retry and backoff policy lives in the orchestrator.
package provider

import (
	"fmt"
	"strconv"
)

// Kind categorizes a provider failure. The orchestrator maps each kind to
// a different recovery strategy.
type Kind int

const (
	// Transient covers unknown or temporary failures: the batch falls back
	// to its original text and the run continues.
	Transient Kind = iota
	// RateLimited means the provider asked us to slow down: the same batch
	// is retried after a cooldown.
	RateLimited
	// QuotaExceeded means the account is out of credit: fatal for the run.
	QuotaExceeded
	// Unauthorized means the credentials are invalid: fatal for the run.
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate-limited"
	case QuotaExceeded:
		return "quota-exceeded"
	case Unauthorized:
		return "unauthorized"
	default:
		return "transient"
	}
}

// Error is a categorized provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Batch is one provider call's worth of source text: synthetic per-batch
// keys ("Line1".."LineN") in submission order mapped to source strings.
type Batch struct {
	// Keys holds the synthetic keys in order.
	Keys []string
	// Source maps each key to its source text.
	Source map[string]string
}

// NewBatch builds a batch from texts in order.
func NewBatch(texts []string) *Batch {
	b := &Batch{
		Keys:   make([]string, len(texts)),
		Source: make(map[string]string, len(texts)),
	}
	for i, text := range texts {
		key := "Line" + strconv.Itoa(i+1)
		b.Keys[i] = key
		b.Source[key] = text
	}
	return b
}

// Len returns the number of texts in the batch.
func (b *Batch) Len() int { return len(b.Keys) }

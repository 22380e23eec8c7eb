// Package voice defines the capabilities this service needs from a
// third-party voice cloning and synthesis provider.
package voice

import (
	"context"
)

// ClonedVoice is a provider-owned handle to a cloned voice.
type ClonedVoice struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Engine string `json:"engine"`
}

// Speech is the outcome of a generation call. Providers either host the
// rendered audio themselves (AudioURL) or hand the bytes back (Audio).
type Speech struct {
	AudioURL    string
	Audio       []byte
	ContentType string
}

// Provider is the capability interface consumed by the clone orchestrator.
// Implementations must be safe for concurrent use; the provider-side clone
// pool itself is not synchronised by the provider.
type Provider interface {
	ListClonedVoices(ctx context.Context) ([]ClonedVoice, error)
	DeleteClonedVoice(ctx context.Context, id string) error
	// CreateClone creates an instant clone from a raw audio sample. hint is
	// optional provider-specific metadata (for example a gender) and may be empty.
	CreateClone(ctx context.Context, name string, sample []byte, hint string) (*ClonedVoice, error)
	GenerateSpeech(ctx context.Context, text, voiceID, engine string) (*Speech, error)
}

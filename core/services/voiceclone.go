package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/tempstore"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

// ClonePolicy selects what happens to existing clones before a new one is made.
type ClonePolicy string

const (
	// PolicyStrict evicts every cloned voice on the account before each
	// request, treating the clone pool as a single slot.
	PolicyStrict ClonePolicy = "strict"
	// PolicyLenient never evicts and relies on the provider's quota.
	PolicyLenient ClonePolicy = "lenient"
)

const (
	DefaultMaxTextLength = 500
	CloneNamePrefix      = "clone_"
)

func ParseClonePolicy(s string) (ClonePolicy, error) {
	switch ClonePolicy(strings.ToLower(s)) {
	case PolicyStrict, "":
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("unknown clone policy %q", s)
	}
}

type SynthesisRequest struct {
	Audio *tempstore.Upload
	Text  string
}

type SynthesisResult struct {
	AudioURL string
	Voice    voice.ClonedVoice
}

// VoiceCloneService sequences the provider calls for one clone-and-speak
// request and owns the release of the request's upload.
type VoiceCloneService struct {
	provider      voice.Provider
	store         tempstore.Store
	guard         SlotGuard
	publisher     AudioPublisher
	observer      SynthesisObserver
	policy        ClonePolicy
	hint          string
	maxTextLength int
	cloneName     func() string
}

type ServiceOption func(*VoiceCloneService)

func WithClonePolicy(p ClonePolicy) ServiceOption {
	return func(s *VoiceCloneService) {
		s.policy = p
	}
}

func WithSlotGuard(g SlotGuard) ServiceOption {
	return func(s *VoiceCloneService) {
		if g != nil {
			s.guard = g
		}
	}
}

func WithAudioPublisher(p AudioPublisher) ServiceOption {
	return func(s *VoiceCloneService) {
		s.publisher = p
	}
}

func WithSynthesisObserver(o SynthesisObserver) ServiceOption {
	return func(s *VoiceCloneService) {
		s.observer = o
	}
}

// WithVoiceHint passes optional provider metadata (e.g. "male") on clone creation.
func WithVoiceHint(hint string) ServiceOption {
	return func(s *VoiceCloneService) {
		s.hint = hint
	}
}

func WithMaxTextLength(n int) ServiceOption {
	return func(s *VoiceCloneService) {
		if n > 0 {
			s.maxTextLength = n
		}
	}
}

func WithCloneNamer(fn func() string) ServiceOption {
	return func(s *VoiceCloneService) {
		if fn != nil {
			s.cloneName = fn
		}
	}
}

// NewCloneName returns clone_<unix-ms>_<random>; the timestamp lets the
// sweeper age clones without provider-side metadata.
func NewCloneName() string {
	return fmt.Sprintf("%s%d_%s", CloneNamePrefix, time.Now().UnixMilli(), uuid.New().String()[:8])
}

func NewVoiceCloneService(provider voice.Provider, store tempstore.Store, opts ...ServiceOption) *VoiceCloneService {
	s := &VoiceCloneService{
		provider:      provider,
		store:         store,
		guard:         NoSlotGuard(),
		policy:        PolicyStrict,
		maxTextLength: DefaultMaxTextLength,
		cloneName:     NewCloneName,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *VoiceCloneService) Policy() ClonePolicy {
	return s.policy
}

// Synthesize clones the voice in req.Audio and renders req.Text with it.
// The upload is released exactly once on every return path. Failures are
// returned as *SynthesisError; nothing is retried or rolled back.
func (s *VoiceCloneService) Synthesize(ctx context.Context, req SynthesisRequest) (res *SynthesisResult, err error) {
	start := time.Now()
	defer func() {
		if s.observer == nil {
			return
		}
		var outcome ErrorKind
		if err != nil {
			outcome = KindOf(err)
		}
		s.observer.ObserveSynthesis(outcome, time.Since(start))
	}()
	if req.Audio != nil {
		defer func() {
			if rerr := s.store.Release(req.Audio); rerr != nil {
				xlog.Error("failed to release upload", "path", req.Audio.Path, "error", rerr)
				if err == nil {
					res, err = nil, storageError("release upload", rerr)
				}
			}
		}()
	}

	if req.Audio == nil || req.Audio.Size <= 0 || req.Text == "" {
		return nil, missingInput()
	}
	if n := utf8.RuneCountInString(req.Text); n > s.maxTextLength {
		return nil, textTooLong(n, s.maxTextLength)
	}

	// only strict mode reads and then clears the shared clone pool
	if s.policy == PolicyStrict {
		release, err := s.guard.Acquire(ctx)
		if err != nil {
			return nil, providerError("acquire clone slot", err)
		}
		defer release()

		if _, err := s.evictAll(ctx); err != nil {
			return nil, providerError("evict cloned voices", err)
		}
	}

	sample, err := s.store.Read(req.Audio)
	if err != nil {
		return nil, storageError("read upload", err)
	}

	name := s.cloneName()
	xlog.Debug("creating voice clone", "name", name, "bytes", len(sample))
	clone, err := s.provider.CreateClone(ctx, name, sample, s.hint)
	if err != nil {
		return nil, providerError("create clone", err)
	}
	if clone == nil || clone.ID == "" {
		return nil, providerError("create clone", errors.New("provider returned no clone id"))
	}
	if clone.Name == "" {
		clone.Name = name
	}

	xlog.Debug("generating speech", "voice", clone.ID, "engine", clone.Engine, "chars", utf8.RuneCountInString(req.Text))
	speech, err := s.provider.GenerateSpeech(ctx, req.Text, clone.ID, clone.Engine)
	if err != nil {
		return nil, providerError("generate speech", err)
	}

	audioURL, err := s.audioURL(speech)
	if err != nil {
		return nil, err
	}

	xlog.Info("voice clone synthesis completed", "voice", clone.ID, "duration", time.Since(start))
	return &SynthesisResult{AudioURL: audioURL, Voice: *clone}, nil
}

func (s *VoiceCloneService) audioURL(speech *voice.Speech) (string, error) {
	switch {
	case speech == nil:
		return "", providerError("generate speech", errors.New("provider returned no speech"))
	case speech.AudioURL != "":
		return speech.AudioURL, nil
	case len(speech.Audio) == 0:
		return "", providerError("generate speech", errors.New("provider returned neither audio nor url"))
	case s.publisher == nil:
		return "", providerError("publish audio", errors.New("provider returned raw audio but no publisher is configured"))
	}
	u, err := s.publisher.Publish(speech.Audio, speech.ContentType)
	if err != nil {
		return "", storageError("publish audio", err)
	}
	return u, nil
}

// EvictAll deletes every cloned voice on the account under the slot guard.
func (s *VoiceCloneService) EvictAll(ctx context.Context) (int, error) {
	release, err := s.guard.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return s.evictAll(ctx)
}

func (s *VoiceCloneService) ListClones(ctx context.Context) ([]voice.ClonedVoice, error) {
	return s.provider.ListClonedVoices(ctx)
}

// evictAll deletes sequentially and stops at the first failure.
func (s *VoiceCloneService) evictAll(ctx context.Context) (int, error) {
	voices, err := s.provider.ListClonedVoices(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	defer func() {
		if s.observer != nil {
			s.observer.ObserveEvictions(deleted)
		}
	}()
	for _, v := range voices {
		if err := s.provider.DeleteClonedVoice(ctx, v.ID); err != nil {
			return deleted, fmt.Errorf("deleting cloned voice %s: %w", v.ID, err)
		}
		deleted++
		xlog.Info("deleted cloned voice", "voice", v.ID)
	}
	return deleted, nil
}

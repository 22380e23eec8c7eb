package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
	"github.com/qaidjoharj53/Voice-Clone-TTS/internal"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/tempstore"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice/playht"
)

// GeneratedAudioRoute is where files written in local output mode are served.
const GeneratedAudioRoute = "generated-audio"

// New builds the PlayHT client from the configuration and wires the service around it.
func New(opts ...config.AppOption) (*Application, error) {
	options := config.NewApplicationConfig(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	client, err := playht.NewClient(options.PlayHTAPIKey, options.PlayHTUserID,
		playht.WithBaseURL(options.PlayHTBaseURL),
		playht.WithDefaultEngine(options.DefaultEngine),
		playht.WithOutputMode(options.OutputMode),
		playht.WithRateLimit(options.ProviderRateLimit),
	)
	if err != nil {
		return nil, err
	}
	return build(options, client)
}

// NewWithProvider wires the service around an already constructed provider.
func NewWithProvider(provider voice.Provider, opts ...config.AppOption) (*Application, error) {
	return build(config.NewApplicationConfig(opts...), provider)
}

func build(options *config.ApplicationConfig, provider voice.Provider) (*Application, error) {
	xlog.Info("Starting voice-clone-tts", "version", internal.PrintableVersion(), "policy", options.ClonePolicy, "lock", options.CloneLock, "output", options.OutputMode)

	policy, err := services.ParseClonePolicy(options.ClonePolicy)
	if err != nil {
		return nil, err
	}
	if options.UploadDir == "" {
		return nil, fmt.Errorf("upload path cannot be empty")
	}
	store, err := tempstore.NewFileStore(options.UploadDir)
	if err != nil {
		return nil, err
	}
	guard, err := services.NewSlotGuard(options.CloneLock, options.CloneLockFile)
	if err != nil {
		return nil, err
	}

	app := &Application{
		applicationConfig: options,
		provider:          provider,
		uploadStore:       store,
		slotGuard:         guard,
	}

	svcOpts := []services.ServiceOption{
		services.WithClonePolicy(policy),
		services.WithSlotGuard(guard),
		services.WithVoiceHint(options.VoiceHint),
		services.WithMaxTextLength(options.MaxTextLength),
	}

	if options.OutputMode == playht.OutputModeLocal {
		if options.GeneratedContentDir == "" {
			return nil, fmt.Errorf("generated content path is required in %s output mode", playht.OutputModeLocal)
		}
		publisher, err := services.NewFileAudioPublisher(GeneratedAudioDir(options), GeneratedAudioRoute)
		if err != nil {
			return nil, fmt.Errorf("unable to create generated audio dir: %w", err)
		}
		svcOpts = append(svcOpts, services.WithAudioPublisher(publisher))
	}

	if !options.DisableMetrics {
		metricsService, err := services.NewMetricsService()
		if err != nil {
			return nil, err
		}
		app.metricsService = metricsService
		svcOpts = append(svcOpts, services.WithSynthesisObserver(metricsService))
	}

	app.voiceCloneService = services.NewVoiceCloneService(provider, store, svcOpts...)

	if options.SweepSchedule != "" {
		sweeper := services.NewCloneSweeper(provider, guard, options.SweepMaxAge)
		if err := sweeper.Start(options.SweepSchedule); err != nil {
			return nil, err
		}
		app.cloneSweeper = sweeper
		xlog.Info("Orphaned clone sweeper enabled", "schedule", options.SweepSchedule, "maxAge", options.SweepMaxAge)
	}

	if policy == services.PolicyStrict && options.CloneLock == services.LockModeNone {
		xlog.Warn("strict clone policy without a slot guard: concurrent requests may evict each other's clones")
	}

	return app, nil
}

// GeneratedAudioDir is the directory served at GeneratedAudioRoute.
func GeneratedAudioDir(options *config.ApplicationConfig) string {
	return filepath.Join(options.GeneratedContentDir, "audio")
}

// Ready reports whether uploads can be admitted.
func (a *Application) Ready() error {
	info, err := os.Stat(a.uploadStore.Dir())
	if err != nil {
		return fmt.Errorf("upload path unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload path %s is not a directory", a.uploadStore.Dir())
	}
	return nil
}

// Stop halts background jobs and flushes metrics.
func (a *Application) Stop(ctx context.Context) error {
	if a.cloneSweeper != nil {
		a.cloneSweeper.Stop()
	}
	if a.metricsService != nil {
		return a.metricsService.Shutdown(ctx)
	}
	return nil
}

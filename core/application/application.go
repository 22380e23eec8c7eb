package application

import (
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/tempstore"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

type Application struct {
	applicationConfig *config.ApplicationConfig
	provider          voice.Provider
	uploadStore       *tempstore.FileStore
	slotGuard         services.SlotGuard
	metricsService    *services.MetricsService
	voiceCloneService *services.VoiceCloneService
	cloneSweeper      *services.CloneSweeper
}

func (a *Application) ApplicationConfig() *config.ApplicationConfig {
	return a.applicationConfig
}

func (a *Application) Provider() voice.Provider {
	return a.provider
}

func (a *Application) UploadStore() *tempstore.FileStore {
	return a.uploadStore
}

// MetricsService is nil when metrics are disabled.
func (a *Application) MetricsService() *services.MetricsService {
	return a.metricsService
}

func (a *Application) VoiceCloneService() *services.VoiceCloneService {
	return a.voiceCloneService
}

// CloneSweeper is nil unless a sweep schedule is configured.
func (a *Application) CloneSweeper() *services.CloneSweeper {
	return a.cloneSweeper
}

func (a *Application) SlotGuard() services.SlotGuard {
	return a.slotGuard
}

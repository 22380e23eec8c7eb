package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/http/endpoints/voice"
)

func RegisterVoiceRoutes(e *echo.Echo, synth voice.Synthesizer, saver voice.UploadSaver, appConfig *config.ApplicationConfig) {
	e.POST("/api/voice/clone-and-tts", voice.CloneAndTTSEndpoint(synth, saver, appConfig))
}

package cli

import (
	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
)

// ProviderFlags are shared by every command talking to PlayHT.
type ProviderFlags struct {
	PlayHTAPIKey      string  `env:"PLAYHT_API_KEY" help:"PlayHT API key" group:"provider"`
	PlayHTUserID      string  `env:"PLAYHT_USER_ID" help:"PlayHT user id" group:"provider"`
	PlayHTBaseURL     string  `env:"PLAYHT_BASE_URL" hidden:"" help:"Override the PlayHT API base URL" group:"provider"`
	DefaultEngine     string  `env:"PLAYHT_DEFAULT_ENGINE" help:"Synthesis engine used when a clone does not report one (default Play3.0-mini)" group:"provider"`
	VoiceHint         string  `env:"VOICE_CLONE_HINT" help:"Optional voice characteristic passed on clone creation (e.g. male, female)" group:"provider"`
	ProviderRateLimit float64 `env:"VOICE_PROVIDER_RATE_LIMIT" default:"0" help:"Maximum provider calls per second (0 = unlimited)" group:"provider"`
	ProviderConfig    string  `env:"VOICE_PROVIDER_CONFIG" type:"path" help:"YAML file with api_key, user_id, base_url, default_engine and voice_hint; fills settings not given otherwise" group:"provider"`

	ClonePolicy   string `env:"VOICE_CLONE_POLICY" default:"strict" enum:"strict,lenient" help:"Evict every clone before creating a new one (strict) or rely on the provider quota (lenient) [${enum}]" group:"cloning"`
	CloneLock     string `env:"VOICE_CLONE_LOCK" default:"process" enum:"none,process,file" help:"Mutual exclusion around clone slot mutations [${enum}]" group:"cloning"`
	CloneLockFile string `env:"VOICE_CLONE_LOCK_FILE" type:"path" default:"/tmp/voice-clone-tts/clone-slots.lock" help:"Lock file shared by processes when --clone-lock=file" group:"cloning"`
}

func (p *ProviderFlags) appOptions() ([]config.AppOption, error) {
	opts := []config.AppOption{
		config.WithPlayHTCredentials(p.PlayHTAPIKey, p.PlayHTUserID),
		config.WithPlayHTBaseURL(p.PlayHTBaseURL),
		config.WithDefaultEngine(p.DefaultEngine),
		config.WithVoiceHint(p.VoiceHint),
		config.WithProviderRateLimit(p.ProviderRateLimit),
		config.WithClonePolicy(p.ClonePolicy),
		config.WithCloneLock(p.CloneLock, p.CloneLockFile),
	}

	if p.ProviderConfig != "" {
		pf, err := config.ReadProviderFile(p.ProviderConfig)
		if err != nil {
			return nil, err
		}
		xlog.Debug("loaded provider config file", "path", p.ProviderConfig)
		opts = append(opts, config.WithProviderFile(pf))
	}
	return opts, nil
}

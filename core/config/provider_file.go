package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ProviderFile is the optional YAML file holding provider settings. Values
// from flags and environment win; the file only fills what is still empty.
type ProviderFile struct {
	APIKey        string `yaml:"api_key"`
	UserID        string `yaml:"user_id"`
	BaseURL       string `yaml:"base_url"`
	DefaultEngine string `yaml:"default_engine"`
	VoiceHint     string `yaml:"voice_hint"`
}

func ReadProviderFile(path string) (*ProviderFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider config %s: %w", path, err)
	}
	pf := &ProviderFile{}
	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, fmt.Errorf("parsing provider config %s: %w", path, err)
	}
	return pf, nil
}

// WithProviderFile merges pf into the provider fields left unset by other options.
// It must come after those options.
func WithProviderFile(pf *ProviderFile) AppOption {
	return func(o *ApplicationConfig) {
		if pf == nil {
			return
		}
		current := ProviderFile{
			APIKey:        o.PlayHTAPIKey,
			UserID:        o.PlayHTUserID,
			BaseURL:       o.PlayHTBaseURL,
			DefaultEngine: o.DefaultEngine,
			VoiceHint:     o.VoiceHint,
		}
		// mergo only errors on mismatched types
		_ = mergo.Merge(&current, pf)
		o.PlayHTAPIKey = current.APIKey
		o.PlayHTUserID = current.UserID
		o.PlayHTBaseURL = current.BaseURL
		o.DefaultEngine = current.DefaultEngine
		o.VoiceHint = current.VoiceHint
	}
}

// Validate reports settings the application cannot start without.
func (o *ApplicationConfig) Validate() error {
	if o.PlayHTAPIKey == "" || o.PlayHTUserID == "" {
		return fmt.Errorf("PlayHT credentials are required (set PLAYHT_API_KEY and PLAYHT_USER_ID)")
	}
	if o.UploadLimitMB < 0 {
		return fmt.Errorf("upload limit must not be negative")
	}
	return nil
}

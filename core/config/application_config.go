package config

import (
	"context"
	"time"
)

type ApplicationConfig struct {
	Context context.Context

	PlayHTAPIKey  string
	PlayHTUserID  string
	PlayHTBaseURL string
	DefaultEngine string
	VoiceHint     string
	OutputMode    string

	ClonePolicy   string
	CloneLock     string
	CloneLockFile string

	UploadDir           string
	GeneratedContentDir string
	UploadLimitMB       int
	MaxTextLength       int
	RequestTimeout      time.Duration
	ProviderRateLimit   float64

	SweepSchedule string
	SweepMaxAge   time.Duration

	APIAddress       string
	CORS             bool
	CORSAllowOrigins string
	StaticDir        string
	ServeStatic      bool
	OpaqueErrors     bool
	DisableMetrics   bool
	Debug            bool
}

type AppOption func(*ApplicationConfig)

func NewApplicationConfig(o ...AppOption) *ApplicationConfig {
	opt := &ApplicationConfig{
		Context:        context.Background(),
		APIAddress:     ":5000",
		OutputMode:     "url",
		ClonePolicy:    "strict",
		CloneLock:      "process",
		UploadLimitMB:  5,
		MaxTextLength:  500,
		RequestTimeout: 2 * time.Minute,
		SweepMaxAge:    time.Hour,
	}
	for _, oo := range o {
		oo(opt)
	}
	return opt
}

func WithContext(ctx context.Context) AppOption {
	return func(o *ApplicationConfig) {
		o.Context = ctx
	}
}

func WithPlayHTCredentials(apiKey, userID string) AppOption {
	return func(o *ApplicationConfig) {
		o.PlayHTAPIKey = apiKey
		o.PlayHTUserID = userID
	}
}

func WithPlayHTBaseURL(u string) AppOption {
	return func(o *ApplicationConfig) {
		o.PlayHTBaseURL = u
	}
}

func WithDefaultEngine(engine string) AppOption {
	return func(o *ApplicationConfig) {
		o.DefaultEngine = engine
	}
}

func WithVoiceHint(hint string) AppOption {
	return func(o *ApplicationConfig) {
		o.VoiceHint = hint
	}
}

func WithOutputMode(mode string) AppOption {
	return func(o *ApplicationConfig) {
		if mode != "" {
			o.OutputMode = mode
		}
	}
}

func WithClonePolicy(policy string) AppOption {
	return func(o *ApplicationConfig) {
		if policy != "" {
			o.ClonePolicy = policy
		}
	}
}

func WithCloneLock(mode, file string) AppOption {
	return func(o *ApplicationConfig) {
		if mode != "" {
			o.CloneLock = mode
		}
		o.CloneLockFile = file
	}
}

func WithUploadDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.UploadDir = dir
	}
}

func WithGeneratedContentDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.GeneratedContentDir = dir
	}
}

func WithUploadLimitMB(limit int) AppOption {
	return func(o *ApplicationConfig) {
		o.UploadLimitMB = limit
	}
}

func WithMaxTextLength(n int) AppOption {
	return func(o *ApplicationConfig) {
		if n > 0 {
			o.MaxTextLength = n
		}
	}
}

func WithRequestTimeout(d time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.RequestTimeout = d
	}
}

func WithProviderRateLimit(rps float64) AppOption {
	return func(o *ApplicationConfig) {
		o.ProviderRateLimit = rps
	}
}

func WithSweeper(schedule string, maxAge time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.SweepSchedule = schedule
		if maxAge > 0 {
			o.SweepMaxAge = maxAge
		}
	}
}

func WithAPIAddress(addr string) AppOption {
	return func(o *ApplicationConfig) {
		o.APIAddress = addr
	}
}

func WithCors(b bool) AppOption {
	return func(o *ApplicationConfig) {
		o.CORS = b
	}
}

func WithCorsAllowOrigins(s string) AppOption {
	return func(o *ApplicationConfig) {
		o.CORSAllowOrigins = s
	}
}

func WithStaticDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.StaticDir = dir
	}
}

func WithOpaqueErrors(b bool) AppOption {
	return func(o *ApplicationConfig) {
		o.OpaqueErrors = b
	}
}

func WithDebug(b bool) AppOption {
	return func(o *ApplicationConfig) {
		o.Debug = b
	}
}

var EnableStaticServing = func(o *ApplicationConfig) {
	o.ServeStatic = true
}

var DisableMetricsEndpoint AppOption = func(o *ApplicationConfig) {
	o.DisableMetrics = true
}

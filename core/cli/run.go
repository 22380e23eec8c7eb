package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/application"
	cliContext "github.com/qaidjoharj53/Voice-Clone-TTS/core/cli/context"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	httpapi "github.com/qaidjoharj53/Voice-Clone-TTS/core/http"
	"github.com/qaidjoharj53/Voice-Clone-TTS/internal"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/signals"
)

const defaultAddress = ":5000"

type RunCMD struct {
	ProviderFlags `embed:""`

	OutputMode           string `env:"VOICE_OUTPUT_MODE" default:"url" enum:"url,local" help:"Return provider hosted URLs (url) or store provider audio and serve it from /generated-audio (local) [${enum}]" group:"provider"`
	UploadPath           string `env:"VOICE_UPLOAD_PATH,UPLOAD_PATH" type:"path" default:"/tmp/voice-clone-tts/uploads" help:"Where uploaded samples live for the duration of a request" group:"storage"`
	GeneratedContentPath string `env:"VOICE_GENERATED_CONTENT_PATH,GENERATED_CONTENT_PATH" type:"path" default:"/tmp/voice-clone-tts/generated" help:"Location for generated audio in local output mode" group:"storage"`

	Address          string        `env:"VOICE_ADDRESS,ADDRESS" default:":5000" help:"Bind address for the API server" group:"api"`
	Port             string        `env:"PORT" hidden:"" help:"Port to listen on when no address is given" group:"api"`
	CORS             bool          `env:"VOICE_CORS,CORS" default:"true" negatable:"" help:"Enable CORS" group:"api"`
	CORSAllowOrigins string        `env:"VOICE_CORS_ALLOW_ORIGINS,CORS_ALLOW_ORIGINS" group:"api"`
	UploadLimit      int           `env:"VOICE_UPLOAD_LIMIT,UPLOAD_LIMIT" default:"5" help:"Maximum voice sample size in MB" group:"api"`
	MaxTextLength    int           `env:"VOICE_MAX_TEXT_LENGTH" default:"500" help:"Maximum text length in characters" group:"api"`
	RequestTimeout   time.Duration `env:"VOICE_REQUEST_TIMEOUT" default:"2m" help:"Deadline for one clone-and-speak request (0 disables)" group:"api"`
	StaticDir        string        `env:"VOICE_STATIC_DIR" type:"path" default:"${basepath}/client/build" help:"Directory holding the built web client" group:"api"`
	ServeStatic      bool          `env:"VOICE_SERVE_STATIC" help:"Serve the web client from --static-dir" group:"api"`
	NodeEnv          string        `env:"NODE_ENV" hidden:"" group:"api"`
	DisableMetrics   bool          `env:"VOICE_DISABLE_METRICS,DISABLE_METRICS_ENDPOINT" default:"false" help:"Disable the /metrics endpoint" group:"api"`
	OpaqueErrors     bool          `env:"VOICE_OPAQUE_ERRORS" default:"false" help:"If true, all error responses are replaced with blank bodies. This is intended only for hardening against information leaks." group:"hardening"`

	SweepSchedule string        `env:"VOICE_SWEEP_SCHEDULE" help:"Cron spec (e.g. '@every 1h') for deleting orphaned clones created by this service; empty disables" group:"cloning"`
	SweepMaxAge   time.Duration `env:"VOICE_SWEEP_MAX_AGE" default:"1h" help:"Age after which a clone created by this service counts as orphaned" group:"cloning"`

	Version bool
}

func (r *RunCMD) listenAddress() string {
	if r.Address == defaultAddress && r.Port != "" {
		return ":" + r.Port
	}
	return r.Address
}

func (r *RunCMD) Run(ctx *cliContext.Context) error {
	if r.Version {
		fmt.Println(internal.Version)
		return nil
	}

	opts, err := r.appOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		config.WithContext(context.Background()),
		config.WithDebug(ctx.Debug || (ctx.LogLevel != nil && *ctx.LogLevel == "debug")),
		config.WithOutputMode(r.OutputMode),
		config.WithUploadDir(r.UploadPath),
		config.WithGeneratedContentDir(r.GeneratedContentPath),
		config.WithAPIAddress(r.listenAddress()),
		config.WithCors(r.CORS),
		config.WithCorsAllowOrigins(r.CORSAllowOrigins),
		config.WithUploadLimitMB(r.UploadLimit),
		config.WithMaxTextLength(r.MaxTextLength),
		config.WithRequestTimeout(r.RequestTimeout),
		config.WithStaticDir(r.StaticDir),
		config.WithOpaqueErrors(r.OpaqueErrors),
		config.WithSweeper(r.SweepSchedule, r.SweepMaxAge),
	)

	if r.ServeStatic || r.NodeEnv == "production" {
		opts = append(opts, config.EnableStaticServing)
	}

	if r.DisableMetrics {
		opts = append(opts, config.DisableMetricsEndpoint)
	}

	app, err := application.New(opts...)
	if err != nil {
		return fmt.Errorf("failed basic startup tasks with error %s", err.Error())
	}

	appHTTP, err := httpapi.API(app)
	if err != nil {
		xlog.Error("error during HTTP App construction", "error", err)
		return err
	}

	address := app.ApplicationConfig().APIAddress
	xlog.Info("voice-clone-tts is started and running", "address", address)

	signals.RegisterGracefulTerminationHandler(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := appHTTP.Shutdown(shutdownCtx); err != nil {
			xlog.Error("error while shutting down the API server", "error", err)
		}
		if err := app.Stop(shutdownCtx); err != nil {
			xlog.Error("error while stopping the application", "error", err)
		}
	})

	if err := appHTTP.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

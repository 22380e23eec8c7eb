package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/application"
	cliContext "github.com/qaidjoharj53/Voice-Clone-TTS/core/cli/context"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/audio"
)

type SpeakCMD struct {
	ProviderFlags `embed:""`

	Text []string `arg:"" help:"Text to speak"`

	VoiceFile  string `short:"f" required:"" type:"existingfile" help:"Audio sample of the voice to clone"`
	OutputFile string `short:"o" type:"path" help:"Write the generated audio to this file instead of printing its URL"`
	OutputMode string `env:"VOICE_OUTPUT_MODE" default:"url" enum:"url,local" help:"Return a provider hosted URL (url) or fetch the audio directly (local) [${enum}]" group:"provider"`
	WorkDir    string `env:"VOICE_SPEAK_WORKDIR" type:"path" default:"/tmp/voice-clone-tts/speak" help:"Scratch directory for the sample copy and local audio" group:"storage"`
}

func (s *SpeakCMD) Run(ctx *cliContext.Context) error {
	text := strings.Join(s.Text, " ")

	sample, err := os.Open(s.VoiceFile)
	if err != nil {
		return err
	}
	defer sample.Close()

	contentType := audio.ContentTypeFromExtension(s.VoiceFile)
	if _, sniffed, err := audio.Identify(sample); err == nil && sniffed != "" {
		contentType = sniffed
	}
	if !audio.IsAudioContentType(contentType) {
		return fmt.Errorf("%s does not look like an audio file", s.VoiceFile)
	}

	opts, err := s.appOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		config.WithOutputMode(s.OutputMode),
		config.WithUploadDir(filepath.Join(s.WorkDir, "uploads")),
		config.WithGeneratedContentDir(filepath.Join(s.WorkDir, "generated")),
		config.DisableMetricsEndpoint,
	)
	app, err := application.New(opts...)
	if err != nil {
		return err
	}
	defer app.Stop(context.Background())

	// the store owns and deletes a copy, never the caller's file
	upload, err := app.UploadStore().Save(filepath.Base(s.VoiceFile), contentType, sample)
	if err != nil {
		return err
	}

	res, err := app.VoiceCloneService().Synthesize(context.Background(), services.SynthesisRequest{Audio: upload, Text: text})
	if err != nil {
		return err
	}

	local := ""
	if !strings.Contains(res.AudioURL, "://") {
		local = filepath.Join(application.GeneratedAudioDir(app.ApplicationConfig()), path.Base(res.AudioURL))
	}

	switch {
	case s.OutputFile == "" && local != "":
		fmt.Printf("Generated file %q\n", local)
	case s.OutputFile == "":
		fmt.Println(res.AudioURL)
	case local != "":
		if err := os.Rename(local, s.OutputFile); err != nil {
			return err
		}
		fmt.Printf("Generated file %q\n", s.OutputFile)
	default:
		if err := download(res.AudioURL, s.OutputFile); err != nil {
			return err
		}
		fmt.Printf("Generated file %q\n", s.OutputFile)
	}
	return nil
}

func download(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	progressBar := progressbar.NewOptions64(
		resp.ContentLength,
		progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", filepath.Base(dst))),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	_, err = io.Copy(io.MultiWriter(f, progressBar), resp.Body)
	return errors.Join(err, progressBar.Finish(), f.Close())
}

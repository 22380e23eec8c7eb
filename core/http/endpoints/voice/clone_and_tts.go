package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/http/middleware"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/schema"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/audio"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/tempstore"
)

const (
	FormFieldVoiceFile = "voiceFile"
	FormFieldText      = "text"
)

// Synthesizer is the orchestration the endpoint hands admitted requests to.
type Synthesizer interface {
	Synthesize(ctx context.Context, req services.SynthesisRequest) (*services.SynthesisResult, error)
}

// UploadSaver persists an admitted upload for the duration of the request.
type UploadSaver interface {
	Save(filename, contentType string, r io.Reader) (*tempstore.Upload, error)
}

// CloneAndTTSEndpoint handles POST /api/voice/clone-and-tts.
// The multipart body carries `voiceFile` (audio) and `text`. Oversized,
// non-audio or over-long input is rejected with 400 before synthesis starts.
func CloneAndTTSEndpoint(synth Synthesizer, saver UploadSaver, appConfig *config.ApplicationConfig) echo.HandlerFunc {
	maxBytes := int64(appConfig.UploadLimitMB) * 1024 * 1024
	maxText := appConfig.MaxTextLength
	if maxText <= 0 {
		maxText = services.DefaultMaxTextLength
	}

	return func(c echo.Context) error {
		defer func() {
			if form := c.Request().MultipartForm; form != nil {
				_ = form.RemoveAll()
			}
		}()

		fileHeader, err := c.FormFile(FormFieldVoiceFile)
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
		text := c.FormValue(FormFieldText)
		if fileHeader == nil || fileHeader.Size == 0 || strings.TrimSpace(text) == "" {
			xlog.Debug("clone-and-tts rejected: missing input", "file", fileHeader != nil && fileHeader.Size > 0, "text", text != "")
			return badRequest(c, services.MissingInputMessage)
		}

		if maxBytes > 0 && fileHeader.Size > maxBytes {
			xlog.Debug("clone-and-tts rejected: upload too large", "size", fileHeader.Size)
			return badRequest(c, fmt.Sprintf("Voice file must be %dMB or less.", appConfig.UploadLimitMB))
		}
		if n := utf8.RuneCountInString(text); n > maxText {
			xlog.Debug("clone-and-tts rejected: text too long", "chars", n)
			return badRequest(c, fmt.Sprintf("Text must be %d characters or less.", maxText))
		}

		contentType, err := admitAudio(fileHeader)
		if err != nil {
			xlog.Debug("clone-and-tts rejected: not audio", "filename", fileHeader.Filename, "error", err)
			return badRequest(c, "Only audio files are allowed.")
		}

		src, err := fileHeader.Open()
		if err != nil {
			return failure(c, services.KindStorage, err)
		}
		upload, err := saver.Save(fileHeader.Filename, contentType, src)
		src.Close()
		if err != nil {
			return failure(c, services.KindStorage, err)
		}

		ctx := c.Request().Context()
		if appConfig.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, appConfig.RequestTimeout)
			defer cancel()
		}

		res, err := synth.Synthesize(ctx, services.SynthesisRequest{Audio: upload, Text: text})
		if err != nil {
			return failure(c, services.KindOf(err), err)
		}

		return c.JSON(http.StatusOK, schema.CloneAndTTSResponse{
			AudioURL: middleware.AbsoluteURL(c, res.AudioURL),
		})
	}
}

var errNotAudio = errors.New("upload is not audio")

// admitAudio accepts a declared audio/* type, or a generic declaration whose
// content sniffs as audio, and returns the content type to record.
func admitAudio(fh *multipart.FileHeader) (string, error) {
	declared := fh.Header.Get("Content-Type")
	if audio.IsAudioContentType(declared) {
		return declared, nil
	}
	if declared != "" && declared != "application/octet-stream" {
		return "", fmt.Errorf("%w: declared %q", errNotAudio, declared)
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, sniffed, err := audio.Identify(f)
	if err != nil || sniffed == "" {
		return "", errNotAudio
	}
	return sniffed, nil
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, schema.ErrorResponse{Message: message})
}

func failure(c echo.Context, kind services.ErrorKind, err error) error {
	xlog.Error("clone-and-tts failed",
		"kind", kind,
		"request_id", middleware.GetRequestID(c),
		"error", err,
	)
	status := http.StatusInternalServerError
	var se *services.SynthesisError
	if errors.As(err, &se) {
		status = se.StatusCode()
	}
	return c.JSON(status, schema.ErrorResponse{Message: services.PublicMessage(err)})
}

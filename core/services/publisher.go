package services

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/audio"
)

// AudioPublisher re-exposes provider-returned audio bytes under a URL this
// service serves.
type AudioPublisher interface {
	Publish(data []byte, contentType string) (string, error)
}

// FileAudioPublisher writes audio into a directory mounted as static content.
// The returned URL is relative to the service root.
type FileAudioPublisher struct {
	dir       string
	urlPrefix string
}

func NewFileAudioPublisher(dir, urlPrefix string) (*FileAudioPublisher, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &FileAudioPublisher{dir: dir, urlPrefix: urlPrefix}, nil
}

func (p *FileAudioPublisher) Publish(data []byte, contentType string) (string, error) {
	name := fmt.Sprintf("%s.%s", uuid.New().String(), audio.ExtensionFromContentType(contentType))
	if err := os.WriteFile(filepath.Join(p.dir, name), data, 0640); err != nil {
		return "", err
	}
	return path.Join(p.urlPrefix, name), nil
}

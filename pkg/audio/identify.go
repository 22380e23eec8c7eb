package audio

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
)

// extensionFromFileType returns the file extension for tag.FileType.
func extensionFromFileType(ft tag.FileType) string {
	switch ft {
	case tag.FLAC:
		return "flac"
	case tag.MP3:
		return "mp3"
	case tag.OGG:
		return "ogg"
	case tag.M4A, tag.ALAC:
		return "m4a"
	case tag.M4B:
		return "m4b"
	case tag.M4P:
		return "m4p"
	case tag.DSF:
		return "dsf"
	default:
		return ""
	}
}

// contentTypeFromFileType returns the MIME type for tag.FileType.
func contentTypeFromFileType(ft tag.FileType) string {
	switch ft {
	case tag.FLAC:
		return "audio/flac"
	case tag.MP3:
		return "audio/mpeg"
	case tag.OGG:
		return "audio/ogg"
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return "audio/mp4"
	case tag.DSF:
		return "audio/dsd"
	default:
		return ""
	}
}

// Identify inspects the stream and returns the detected audio extension and
// Content-Type. RIFF/WAVE is recognised with go-audio/wav, tagged formats with
// dhowden/tag. An unrecognised stream yields empty strings and a nil error.
// r is rewound to its start before returning.
func Identify(r io.ReadSeeker) (ext string, contentType string, err error) {
	defer r.Seek(0, io.SeekStart)

	if wav.NewDecoder(r).IsValidFile() {
		return "wav", "audio/wav", nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}

	_, fileType, err := tag.Identify(r)
	if err != nil || fileType == tag.UnknownFileType {
		return "", "", err
	}
	ext = extensionFromFileType(fileType)
	contentType = contentTypeFromFileType(fileType)
	if ext == "" || contentType == "" {
		return "", "", nil
	}
	return ext, contentType, nil
}

// IsAudioContentType reports whether a declared media type is in the audio/ family.
func IsAudioContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = ct
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "audio/")
}

// ContentTypeFromExtension returns the MIME type for common audio file extensions.
func ContentTypeFromExtension(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "flac":
		return "audio/flac"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "ogg", "oga":
		return "audio/ogg"
	case "m4a", "m4b", "m4p":
		return "audio/mp4"
	case "webm":
		return "audio/webm"
	default:
		return ""
	}
}

// ExtensionFromContentType is the inverse used when naming generated files.
func ExtensionFromContentType(ct string) string {
	switch strings.ToLower(ct) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg":
		return "ogg"
	case "audio/flac":
		return "flac"
	case "audio/mp4", "audio/aac":
		return "m4a"
	default:
		return "mp3"
	}
}

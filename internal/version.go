package internal

import "fmt"

// Set with -ldflags "-X github.com/qaidjoharj53/Voice-Clone-TTS/internal.Version=..."
var Version = "dev"
var Commit = ""

func PrintableVersion() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

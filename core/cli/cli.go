package cli

import (
	cliContext "github.com/qaidjoharj53/Voice-Clone-TTS/core/cli/context"
)

var CLI struct {
	cliContext.Context `embed:""`

	Run    RunCMD    `cmd:"" help:"Run the voice-clone-tts API server, this is the default command if no other command is specified. Run 'voice-clone-tts run --help' for more information" default:"withargs"`
	Speak  SpeakCMD  `cmd:"" help:"Clone a voice from a local sample and speak text with it"`
	Voices VoicesCMD `cmd:"" help:"Inspect and clean up cloned voices on the provider account"`
}

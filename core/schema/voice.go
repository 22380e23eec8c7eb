package schema

// CloneAndTTSResponse is the success body of POST /api/voice/clone-and-tts.
type CloneAndTTSResponse struct {
	AudioURL string `json:"audioUrl"`
}

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ClonedVoice describes a clone held by the provider account.
type ClonedVoice struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`
}

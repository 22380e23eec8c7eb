package playht_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice/playht"
)

var _ = Describe("PlayHT client", func() {
	var (
		mux    *http.ServeMux
		server *httptest.Server
	)

	BeforeEach(func() {
		mux = http.NewServeMux()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("AUTHORIZATION") != "key" || r.Header.Get("X-USER-ID") != "user" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			mux.ServeHTTP(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(opts ...playht.Option) *playht.Client {
		opts = append([]playht.Option{playht.WithBaseURL(server.URL), playht.WithPollInterval(5 * time.Millisecond)}, opts...)
		c, err := playht.NewClient("key", "user", opts...)
		Expect(err).ToNot(HaveOccurred())
		return c
	}

	It("requires credentials", func() {
		_, err := playht.NewClient("", "user")
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown output modes", func() {
		_, err := playht.NewClient("key", "user", playht.WithOutputMode("carrier-pigeon"))
		Expect(err).To(HaveOccurred())
	})

	It("lists cloned voices", func() {
		mux.HandleFunc("GET /cloned-voices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"v1","name":"clone_1","type":"instant","voice_engine":"PlayHT2.0"},{"id":"v2","name":"other","voice_engine":"Play3.0-mini"}]`))
		})

		voices, err := newClient().ListClonedVoices(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(voices).To(HaveLen(2))
		Expect(voices[0].ID).To(Equal("v1"))
		Expect(voices[0].Name).To(Equal("clone_1"))
		Expect(voices[0].Engine).To(Equal("PlayHT2.0"))
	})

	It("deletes a cloned voice by id", func() {
		var got map[string]string
		mux.HandleFunc("DELETE /cloned-voices", func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			w.Write([]byte(`{"message":"ok"}`))
		})

		Expect(newClient().DeleteClonedVoice(context.Background(), "v9")).To(Succeed())
		Expect(got).To(HaveKeyWithValue("voice_id", "v9"))
	})

	It("uploads the sample and the optional hint when cloning", func() {
		mux.HandleFunc("POST /cloned-voices/instant", func(w http.ResponseWriter, r *http.Request) {
			Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
			Expect(r.FormValue("voice_name")).To(Equal("clone_42"))
			Expect(r.FormValue("gender")).To(Equal("male"))
			f, _, err := r.FormFile("sample_file")
			Expect(err).ToNot(HaveOccurred())
			data, _ := io.ReadAll(f)
			Expect(string(data)).To(Equal("RIFFDATA"))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"v1","name":"clone_42","voice_engine":"e1"}`))
		})

		v, err := newClient().CreateClone(context.Background(), "clone_42", []byte("RIFFDATA"), "male")
		Expect(err).ToNot(HaveOccurred())
		Expect(v.ID).To(Equal("v1"))
		Expect(v.Engine).To(Equal("e1"))
	})

	It("surfaces provider failures as APIError", func() {
		mux.HandleFunc("POST /cloned-voices/instant", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error_message":"clone limit reached"}`))
		})

		_, err := newClient().CreateClone(context.Background(), "clone_1", []byte("x"), "")
		var apiErr *playht.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusForbidden))
		Expect(apiErr.Body).To(ContainSubstring("clone limit reached"))
	})

	It("polls a tts job until the audio url is ready", func() {
		var polls atomic.Int32
		mux.HandleFunc("POST /tts", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("voice", "v1"))
			Expect(body).To(HaveKeyWithValue("voice_engine", "e1"))
			Expect(body).To(HaveKeyWithValue("text", "Hello world"))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"job1","status":"pending","output":null}`))
		})
		mux.HandleFunc("GET /tts/job1", func(w http.ResponseWriter, r *http.Request) {
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"id":"job1","status":"generating","output":null}`))
				return
			}
			w.Write([]byte(`{"id":"job1","status":"complete","output":{"url":"https://host/out.mp3"}}`))
		})

		speech, err := newClient().GenerateSpeech(context.Background(), "Hello world", "v1", "e1")
		Expect(err).ToNot(HaveOccurred())
		Expect(speech.AudioURL).To(Equal("https://host/out.mp3"))
		Expect(polls.Load()).To(BeNumerically(">=", 2))
	})

	It("reports failed tts jobs", func() {
		mux.HandleFunc("POST /tts", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job2","status":"failed"}`))
		})

		_, err := newClient().GenerateSpeech(context.Background(), "Hi", "v1", "e1")
		Expect(err).To(MatchError(playht.ErrGenerationFailed))
	})

	It("stops polling when the context is cancelled", func() {
		mux.HandleFunc("POST /tts", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job3","status":"pending"}`))
		})
		mux.HandleFunc("GET /tts/job3", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job3","status":"pending"}`))
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err := newClient().GenerateSpeech(ctx, "Hi", "v1", "e1")
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("returns raw bytes in local output mode and falls back to the default engine", func() {
		mux.HandleFunc("POST /tts/stream", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("voice_engine", "Play3.0-mini"))
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("MP3DATA"))
		})

		speech, err := newClient(playht.WithOutputMode(playht.OutputModeLocal)).GenerateSpeech(context.Background(), "Hi", "v1", "")
		Expect(err).ToNot(HaveOccurred())
		Expect(speech.AudioURL).To(BeEmpty())
		Expect(string(speech.Audio)).To(Equal("MP3DATA"))
		Expect(speech.ContentType).To(Equal("audio/mpeg"))
	})
})

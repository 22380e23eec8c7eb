package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/application"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	. "github.com/qaidjoharj53/Voice-Clone-TTS/core/http"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/schema"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

type stubProvider struct {
	mu     sync.Mutex
	voices []voice.ClonedVoice
	calls  []string
	speech *voice.Speech
	err    error
}

func (p *stubProvider) log(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
}

func (p *stubProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

func (p *stubProvider) ListClonedVoices(context.Context) ([]voice.ClonedVoice, error) {
	p.log("list")
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.voices), nil
}

func (p *stubProvider) DeleteClonedVoice(_ context.Context, id string) error {
	p.log("delete:" + id)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voices = slices.DeleteFunc(p.voices, func(v voice.ClonedVoice) bool { return v.ID == id })
	return nil
}

func (p *stubProvider) CreateClone(_ context.Context, name string, sample []byte, _ string) (*voice.ClonedVoice, error) {
	p.log("create")
	if p.err != nil {
		return nil, p.err
	}
	v := voice.ClonedVoice{ID: "v1", Name: name, Engine: "e1"}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voices = append(p.voices, v)
	return &v, nil
}

func (p *stubProvider) GenerateSpeech(_ context.Context, text, voiceID, engine string) (*voice.Speech, error) {
	p.log(fmt.Sprintf("generate:%s:%s", voiceID, engine))
	if p.speech != nil {
		return p.speech, nil
	}
	return &voice.Speech{AudioURL: "https://host/out.mp3"}, nil
}

func cloneRequest(text string, audio []byte, contentType string) *http.Request {
	b := &bytes.Buffer{}
	w := multipart.NewWriter(b)
	Expect(w.WriteField("text", text)).To(Succeed())
	if audio != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="voiceFile"; filename="sample.mp3"`)
		h.Set("Content-Type", contentType)
		fw, err := w.CreatePart(h)
		Expect(err).ToNot(HaveOccurred())
		_, err = fw.Write(audio)
		Expect(err).ToNot(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())
	req := httptest.NewRequest(http.MethodPost, "/api/voice/clone-and-tts", b)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var _ = Describe("API", func() {
	var (
		tmpdir   string
		provider *stubProvider
		e        *echo.Echo
		app      *application.Application
		extra    []config.AppOption
	)

	JustBeforeEach(func() {
		opts := append([]config.AppOption{
			config.WithUploadDir(filepath.Join(tmpdir, "uploads")),
			config.WithGeneratedContentDir(filepath.Join(tmpdir, "generated")),
		}, extra...)
		var err error
		app, err = application.NewWithProvider(provider, opts...)
		Expect(err).ToNot(HaveOccurred())
		e, err = API(app)
		Expect(err).ToNot(HaveOccurred())
	})

	BeforeEach(func() {
		tmpdir = GinkgoT().TempDir()
		provider = &stubProvider{}
		extra = nil
	})

	AfterEach(func() {
		Expect(app.Stop(context.Background())).To(Succeed())
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	uploadsLeft := func() []os.DirEntry {
		entries, err := os.ReadDir(filepath.Join(tmpdir, "uploads"))
		Expect(err).ToNot(HaveOccurred())
		return entries
	}

	It("answers health probes", func() {
		Expect(serve(httptest.NewRequest("GET", "/healthz", nil)).Code).To(Equal(200))
		Expect(serve(httptest.NewRequest("GET", "/readyz", nil)).Code).To(Equal(200))
	})

	It("clones and synthesizes after evicting existing clones", func() {
		provider.voices = []voice.ClonedVoice{{ID: "old1"}, {ID: "old2"}}

		rec := serve(cloneRequest("Hello world", []byte("ID3 sample"), "audio/mpeg"))

		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		var body schema.CloneAndTTSResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.AudioURL).To(Equal("https://host/out.mp3"))
		Expect(provider.Calls()).To(Equal([]string{"list", "delete:old1", "delete:old2", "create", "generate:v1:e1"}))
		Expect(rec.Header().Get("X-Request-ID")).ToNot(BeEmpty())
		Expect(uploadsLeft()).To(BeEmpty())
	})

	It("maps provider failures to a generic 500", func() {
		provider.err = fmt.Errorf("upstream said: secret detail")

		rec := serve(cloneRequest("Hello", []byte("ID3"), "audio/mpeg"))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("An error occurred during processing"))
		Expect(rec.Body.String()).ToNot(ContainSubstring("secret"))
		Expect(provider.Calls()).ToNot(ContainElement(HavePrefix("generate")))
		Expect(uploadsLeft()).To(BeEmpty())
	})

	It("rejects bodies beyond the upload limit with 400", func() {
		rec := serve(cloneRequest("Hello", bytes.Repeat([]byte{1}, 7*1024*1024), "audio/wav"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("5MB"))
		Expect(provider.Calls()).To(BeEmpty())
	})

	It("rejects streamed bodies that cross the upload limit while parsing", func() {
		req := cloneRequest("Hello", bytes.Repeat([]byte{1}, 7*1024*1024), "audio/wav")
		req.ContentLength = -1
		rec := serve(req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("5MB"))
		Expect(provider.Calls()).To(BeEmpty())
	})

	It("treats an empty voice sample as missing input", func() {
		rec := serve(cloneRequest("Hello world", []byte{}, "audio/wav"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("Missing voice file or text"))
		Expect(provider.Calls()).To(BeEmpty())
		Expect(uploadsLeft()).To(BeEmpty())
	})

	It("rejects missing input without calling the provider", func() {
		rec := serve(cloneRequest("Hello", nil, ""))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("Missing voice file or text"))
		Expect(provider.Calls()).To(BeEmpty())
	})

	It("exposes prometheus metrics", func() {
		serve(cloneRequest("Hello", []byte("ID3"), "audio/mpeg"))

		rec := serve(httptest.NewRequest("GET", "/metrics", nil))
		Expect(rec.Code).To(Equal(200))
		Expect(rec.Body.String()).To(ContainSubstring("voice_synthesis"))
		Expect(rec.Body.String()).To(ContainSubstring("api_call"))
	})

	Context("lenient policy", func() {
		BeforeEach(func() {
			extra = []config.AppOption{config.WithClonePolicy("lenient")}
			provider.voices = []voice.ClonedVoice{{ID: "keep"}}
		})

		It("leaves existing clones alone", func() {
			rec := serve(cloneRequest("Hello", []byte("ID3"), "audio/mpeg"))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(provider.Calls()).To(Equal([]string{"create", "generate:v1:e1"}))
		})
	})

	Context("local output mode", func() {
		BeforeEach(func() {
			extra = []config.AppOption{config.WithOutputMode("local")}
			provider.speech = &voice.Speech{Audio: []byte("MP3DATA"), ContentType: "audio/mpeg"}
		})

		It("serves provider audio from the generated-audio route", func() {
			req := cloneRequest("Hello", []byte("ID3"), "audio/mpeg")
			req.Header.Set("X-Forwarded-Proto", "https")
			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())

			var body schema.CloneAndTTSResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.AudioURL).To(HavePrefix("https://example.com/generated-audio/"))
			Expect(body.AudioURL).To(HaveSuffix(".mp3"))

			path := strings.TrimPrefix(body.AudioURL, "https://example.com")
			get := serve(httptest.NewRequest("GET", path, nil))
			Expect(get.Code).To(Equal(200))
			Expect(get.Body.String()).To(Equal("MP3DATA"))
		})
	})

	Context("static client", func() {
		BeforeEach(func() {
			dir := filepath.Join(tmpdir, "build")
			Expect(os.MkdirAll(dir, 0750)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>client</html>"), 0600)).To(Succeed())
			extra = []config.AppOption{config.WithStaticDir(dir), config.EnableStaticServing}
		})

		It("serves index.html for client routes", func() {
			rec := serve(httptest.NewRequest("GET", "/some/client/route", nil))
			Expect(rec.Code).To(Equal(200))
			Expect(rec.Body.String()).To(ContainSubstring("client"))

			Expect(serve(httptest.NewRequest("GET", "/healthz", nil)).Code).To(Equal(200))
		})
	})

	Context("opaque errors", func() {
		BeforeEach(func() {
			extra = []config.AppOption{config.WithOpaqueErrors(true)}
		})

		It("returns bare status codes for unknown routes", func() {
			rec := serve(httptest.NewRequest("GET", "/nope", nil))
			Expect(rec.Code).To(Equal(404))
			Expect(rec.Body.Len()).To(BeZero())
		})
	})
})

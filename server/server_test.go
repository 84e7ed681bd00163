package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubExplainer struct {
	got []string
	err error
}

func (s *stubExplainer) Explain(_ context.Context, question, about string, followUp bool) (string, error) {
	s.got = append(s.got, question, about)
	if s.err != nil {
		return "", s.err
	}
	if followUp {
		return "follow-up answer", nil
	}
	return "a verb is a doing word", nil
}

type stubSynth struct{ voice string }

func (s *stubSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	s.voice = voice
	return []byte("mp3:" + text), nil
}

type stubTranscriber struct {
	name  string
	audio []byte
}

func (s *stubTranscriber) Transcribe(_ context.Context, audio []byte, name string) (string, error) {
	s.name, s.audio = name, audio
	return "blue", nil
}

type stubBroker struct{}

func (stubBroker) CreateSession(context.Context, string) (realtime.Credential, error) {
	return realtime.Credential{Value: "ek", Session: json.RawMessage(`{"client_secret":{"value":"ek"}}`)}, nil
}

type stubGenerator struct{ err error }

func (s stubGenerator) GenerateQuestions(_ context.Context, character string) ([]types.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []types.Question{{Prompt: "What colour is the sky, " + character + "?", Answer: "blue"}}, nil
}

func newTestRouter(d Deps) *gin.Engine {
	return New(d)
}

func do(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	r := newTestRouter(Deps{})
	do(r, http.MethodGet, "/health", "")
	w := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestChat(t *testing.T) {
	ex := &stubExplainer{}
	r := newTestRouter(Deps{Explainer: ex})

	w := do(r, http.MethodPost, "/api/chat", `{"question":"What is a verb?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a verb is a doing word", decode(t, w)["explanation"])

	w = do(r, http.MethodPost, "/api/chat", `{"question":"Is run a verb?","context":"What is a verb?","isFollowUp":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "follow-up answer", decode(t, w)["explanation"])
	assert.Equal(t, "What is a verb?", ex.got[3])

	w = do(r, http.MethodPost, "/api/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "error")
}

func TestChat_Errors(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodPost, "/api/chat", `{"question":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r := newTestRouter(Deps{Explainer: &stubExplainer{err: errors.New("upstream down")}})
	w = do(r, http.MethodPost, "/api/chat", `{"question":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error generating explanation", decode(t, w)["error"])
}

func TestSpeech(t *testing.T) {
	s := &stubSynth{}
	w := do(newTestRouter(Deps{Speech: s}), http.MethodPost, "/api/speech", `{"text":"Hello","characterId":"mother"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "mp3:Hello", w.Body.String())
	assert.Equal(t, "mother", s.voice)
}

func TestTranscribe(t *testing.T) {
	tr := &stubTranscriber{}
	r := newTestRouter(Deps{Transcriber: tr})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("RIFFdata"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "blue", decode(t, w)["text"])
	assert.Equal(t, "clip.wav", tr.name)
	assert.Equal(t, []byte("RIFFdata"), tr.audio)

	w = do(r, http.MethodPost, "/api/transcribe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No audio file provided", decode(t, w)["error"])
}

func TestSession(t *testing.T) {
	w := do(newTestRouter(Deps{Sessions: stubBroker{}}), http.MethodPost, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":{"client_secret":{"value":"ek"}}}`, w.Body.String())
}

func TestGenerateQuestions(t *testing.T) {
	r := newTestRouter(Deps{Generator: stubGenerator{}})
	w := do(r, http.MethodPost, "/api/generate-questions", `{"character":"mother"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"questions":[{"text":"What colour is the sky, mother?","answer":"blue"}]}`, w.Body.String())

	r = newTestRouter(Deps{Generator: stubGenerator{err: errors.New("bad json")}})
	w = do(r, http.MethodPost, "/api/generate-questions", `{"character":"mother"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate questions", decode(t, w)["error"])
}

func TestPreferences_Flow(t *testing.T) {
	r := newTestRouter(Deps{Prefs: prefs.NewMemoryStore()})

	// Without a cookie there is nothing to fetch and nothing to save under.
	w := do(r, http.MethodGet, "/api/saved_preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"preferences":null}`, w.Body.String())
	w = do(r, http.MethodPost, "/api/saved_preferences", `{"firstName":"Ava"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The preferences page issues the identity cookie.
	w = do(r, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.Equal(t, "name", decode(t, w)["step"])

	body := `{"firstName":"Ava","lastName":"Smith","gender":"girl","mainLanguage":"English","preferredLanguage":"spanish","age":6}`
	w = do(r, http.MethodPost, "/api/saved_preferences", body, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = do(r, http.MethodGet, "/api/saved_preferences", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"preferences":{"firstName":"Ava","lastName":"Smith","gender":"girl","mainLanguage":"english","preferredLanguage":"spanish","age":6}}`, w.Body.String())

	// A returning visitor keeps the cookie and skips the wizard.
	w = do(r, http.MethodGet, "/preferences", "", cookie)
	assert.Empty(t, w.Result().Cookies())
	m := decode(t, w)
	assert.Equal(t, "complete", m["step"])
	assert.Equal(t, cookie.Value, m["userId"])

	w = do(r, http.MethodPost, "/api/saved_preferences", `{"firstName":"Ava","gender":"dragon"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "gender")
}

func TestUnconfiguredRoutes(t *testing.T) {
	r := newTestRouter(Deps{})
	for _, path := range []string{"/api/speech", "/api/transcribe", "/api/session", "/api/generate-questions"} {
		w := do(r, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nathoo/tinytalkers/prefs"
	"go.uber.org/zap"
)

// maxAudioSize bounds uploads to /api/transcribe.
const maxAudioSize = 25 << 20

type handler struct {
	deps Deps
	log  *zap.Logger
}

func abort(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

type chatRequest struct {
	Question   string `json:"question" binding:"required"`
	Context    string `json:"context"`
	IsFollowUp bool   `json:"isFollowUp"`
}

func (h *handler) chat(c *gin.Context) {
	if h.deps.Explainer == nil {
		abort(c, http.StatusServiceUnavailable, "Chat is not configured", nil)
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "question is required", err)
		return
	}
	text, err := h.deps.Explainer.Explain(c.Request.Context(), req.Question, req.Context, req.IsFollowUp)
	if err != nil {
		abort(c, http.StatusInternalServerError, "Error generating explanation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"explanation": text})
}

type speechRequest struct {
	Text        string `json:"text" binding:"required"`
	CharacterID string `json:"characterId"`
}

func (h *handler) speech(c *gin.Context) {
	if h.deps.Speech == nil {
		abort(c, http.StatusServiceUnavailable, "Speech is not configured", nil)
		return
	}
	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "text is required", err)
		return
	}
	audio, err := h.deps.Speech.Synthesize(c.Request.Context(), req.Text, req.CharacterID)
	if err != nil {
		abort(c, http.StatusInternalServerError, "Error generating speech", err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (h *handler) transcribe(c *gin.Context) {
	if h.deps.Transcriber == nil {
		abort(c, http.StatusServiceUnavailable, "Transcription is not configured", nil)
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		abort(c, http.StatusBadRequest, "No audio file provided", err)
		return
	}
	if fh.Size > maxAudioSize {
		abort(c, http.StatusRequestEntityTooLarge, "Audio file is too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "Error reading audio", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		abort(c, http.StatusBadRequest, "Error reading audio", err)
		return
	}

	name := filepath.Base(fh.Filename)
	if filepath.Ext(name) == "" {
		name = "audio.webm"
	}
	text, err := h.deps.Transcriber.Transcribe(c.Request.Context(), data, name)
	if err != nil {
		abort(c, http.StatusInternalServerError, "Error processing audio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type sessionRequest struct {
	Instructions string `json:"instructions"`
}

func (h *handler) session(c *gin.Context) {
	if h.deps.Sessions == nil {
		abort(c, http.StatusServiceUnavailable, "Realtime sessions are not configured", nil)
		return
	}
	var req sessionRequest
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}
	cred, err := h.deps.Sessions.CreateSession(c.Request.Context(), req.Instructions)
	if err != nil {
		abort(c, http.StatusBadGateway, "Error creating session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": cred.Session})
}

type generateRequest struct {
	Character string `json:"character" binding:"required"`
}

func (h *handler) generateQuestions(c *gin.Context) {
	if h.deps.Generator == nil {
		abort(c, http.StatusServiceUnavailable, "Question generation is not configured", nil)
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "character is required", err)
		return
	}
	questions, err := h.deps.Generator.GenerateQuestions(c.Request.Context(), strings.TrimSpace(req.Character))
	if err != nil {
		abort(c, http.StatusInternalServerError, "Failed to generate questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *handler) getPreferences(c *gin.Context) {
	id := identity(c)
	if id == "" || h.deps.Prefs == nil {
		c.JSON(http.StatusOK, gin.H{"preferences": nil})
		return
	}
	p, err := h.deps.Prefs.Get(c.Request.Context(), id)
	if err != nil {
		abort(c, http.StatusInternalServerError, "Failed to fetch preferences", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": p})
}

func (h *handler) putPreferences(c *gin.Context) {
	if h.deps.Prefs == nil {
		abort(c, http.StatusServiceUnavailable, "Preferences are not configured", nil)
		return
	}
	id := identity(c)
	if id == "" {
		abort(c, http.StatusUnauthorized, "No user cookie found", nil)
		return
	}
	var p prefs.Preferences
	if err := c.ShouldBindJSON(&p); err != nil {
		abort(c, http.StatusBadRequest, "invalid preferences", err)
		return
	}
	if err := h.deps.Prefs.Put(c.Request.Context(), id, p); err != nil {
		if errors.Is(err, prefs.ErrInvalid) {
			abort(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		abort(c, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}
	p.Normalize()
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": p})
}

// preferences reports where the child is in the preference wizard, issuing
// an identity cookie on the first visit.
func (h *handler) preferences(c *gin.Context) {
	id := identity(c)
	var p *prefs.Preferences
	if h.deps.Prefs != nil {
		var err error
		if p, err = h.deps.Prefs.Get(c.Request.Context(), id); err != nil {
			abort(c, http.StatusInternalServerError, "Failed to fetch preferences", err)
			return
		}
	}
	step := prefs.StepName
	if p != nil {
		step = prefs.StepComplete
	}
	c.JSON(http.StatusOK, gin.H{"userId": id, "step": step, "preferences": p})
}

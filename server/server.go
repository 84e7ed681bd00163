// Package server exposes the game's remote collaborators over HTTP so web
// and mobile clients can use them without holding API keys.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/types"
	"github.com/nathoo/tinytalkers/voice"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// QuestionGenerator writes new quiz questions for a character.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, character string) ([]types.Question, error)
}

// Transcriber turns an uploaded recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, name string) (string, error)
}

// SessionBroker issues realtime session credentials.
type SessionBroker interface {
	CreateSession(ctx context.Context, instructions string) (realtime.Credential, error)
}

// Deps are the collaborators behind the routes. A nil collaborator makes
// its route answer 503.
type Deps struct {
	Explainer   assist.Explainer
	Generator   QuestionGenerator
	Speech      voice.Synthesizer
	Transcriber Transcriber
	Sessions    SessionBroker
	Prefs       prefs.Store

	CORSOrigins []string
	CookieTTL   time.Duration
	Log         *zap.Logger
}

// New builds the router.
func New(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.CookieTTL <= 0 {
		d.CookieTTL = 7 * 24 * time.Hour
	}
	h := &handler{deps: d, log: d.Log.Named("http")}

	router := gin.New()
	router.Use(GinZapLogger(d.Log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if len(d.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = d.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	api := router.Group("/api")
	api.POST("/chat", h.chat)
	api.POST("/speech", h.speech)
	api.POST("/transcribe", h.transcribe)
	api.POST("/session", h.session)
	api.POST("/generate-questions", h.generateQuestions)

	saved := api.Group("/saved_preferences", Identity(d.CookieTTL, false))
	saved.GET("", h.getPreferences)
	saved.POST("", h.putPreferences)

	router.GET("/preferences", Identity(d.CookieTTL, true), h.preferences)

	p.Use(router)
	return router
}

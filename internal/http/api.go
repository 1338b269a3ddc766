// Package http is the local stand-in for the wellness backend. It serves the
// same routes and error bodies the client expects.
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
	"wellness-hub/internal/service"
)

const userIDKey = "userID"

type Config struct {
	Users       service.UserService
	Journals    repository.JournalRepository
	Assessments repository.AssessmentRepository
	Tokens      *TokenIssuer
	// UploadDir, when set, is served under /uploads.
	UploadDir      string
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// Handler wires HTTP routes to the backend services.
type Handler struct {
	users       service.UserService
	journals    repository.JournalRepository
	assessments repository.AssessmentRepository
	tokens      *TokenIssuer
	uploadDir   string
	origins     []string
	log         *logrus.Entry
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Handler{
		users:       cfg.Users,
		journals:    cfg.Journals,
		assessments: cfg.Assessments,
		tokens:      cfg.Tokens,
		uploadDir:   cfg.UploadDir,
		origins:     cfg.AllowedOrigins,
		log:         cfg.Logger.WithField("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.origins))

	if h.uploadDir != "" {
		router.Static("/uploads", h.uploadDir)
	}

	api := router.Group("/api")
	auth := h.authMiddleware()

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/me", auth, h.me)
	}

	health := api.Group("/health")
	{
		health.GET("/test", h.healthTest)
		health.POST("/heart-predict", auth, h.predictHeart)
		health.POST("/diabetes-predict", auth, h.predictDiabetes)
		health.POST("/mental-health-predict", auth, h.predictMentalHealth)
		health.GET("/heart-disease-history", auth, h.assessmentHistory(domain.AssessmentHeart))
		health.GET("/diabetes-history", auth, h.assessmentHistory(domain.AssessmentDiabetes))
		health.GET("/mental-health-history", auth, h.assessmentHistory(domain.AssessmentMentalHealth))
	}

	student := api.Group("/student")
	{
		student.GET("/resources", h.studentResources)
		for _, form := range studentForms {
			student.POST("/"+form.name, auth, h.submitStudentForm(form))
		}
		student.GET("/stress/history", auth, h.stressHistory)
		student.GET("/sleep/weekly", auth, h.weeklySleep)
	}

	journals := api.Group("/journals", auth)
	{
		journals.GET("", h.listJournals)
		journals.POST("", h.createJournal)
		journals.GET("/:id", h.getJournal)
		journals.PUT("/:id", h.updateJournal)
		journals.DELETE("/:id", h.deleteJournal)
	}

	wellness := api.Group("/wellness")
	{
		wellness.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "Wellness routes are working!", "timestamp": nowISO()})
		})
		wellness.POST("/assess", auth, h.assessWellness)
		wellness.GET("/history", auth, h.assessmentHistory(domain.AssessmentWellness))
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-auth-token, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func abortMsg(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"msg": msg})
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

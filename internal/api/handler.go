package api

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Stable error bodies per status code.
const (
	msgBadRequest = "Bad request"
	msgNotFound   = "Not found"
	msgConflict   = "Resource already present"
)

type Handler struct {
	repo db.Repository
	cfg  *config.Config
	log  zerolog.Logger
}

func NewHandler(repo db.Repository, cfg *config.Config) *Handler {
	return &Handler{
		repo: repo,
		cfg:  cfg,
		log:  logger.With("api"),
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// ListCourses returns the distinct (code, name) pairs present in the catalog.
func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.repo.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list courses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if courses == nil {
		courses = []model.CourseSummary{}
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse returns every occasion for a course ordered by date, with attachments
// rendered as absolute URLs when present.
func (h *Handler) GetCourse(c *gin.Context) {
	code := c.Param("code")

	results, err := h.repo.ListResults(c.Request.Context(), code)
	if err != nil {
		h.log.Error().Err(err).Str("code", code).Msg("Failed to list results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	base := h.baseURL(c)
	response := make([]model.CourseResult, 0, len(results))
	for i := range results {
		response = append(response, courseResult(&results[i], base))
	}

	h.log.Info().Str("code", code).Int("results", len(response)).Msg("Responding with course results")
	c.JSON(http.StatusOK, response)
}

// GetExam serves the exam PDF for one occasion.
func (h *Handler) GetExam(c *gin.Context) {
	h.serveAttachment(c, model.KindExam)
}

// GetSolution serves the solution PDF for one occasion.
func (h *Handler) GetSolution(c *gin.Context) {
	h.serveAttachment(c, model.KindSolution)
}

func (h *Handler) serveAttachment(c *gin.Context, kind model.AttachmentKind) {
	code := c.Param("code")
	date := c.Param("date")

	result, err := h.repo.GetResult(c.Request.Context(), code, date)
	if err == errors.ErrResultNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("code", code).Str("taken", date).Msg("Failed to load result")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !result.HasAttachment(kind) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	data := result.Exam
	if kind == model.KindSolution {
		data = result.Solution
	}

	c.Data(http.StatusOK, "application/pdf", data)
}

// PutExamSuggestion stages a base64-encoded exam PDF for moderation.
func (h *Handler) PutExamSuggestion(c *gin.Context) {
	h.putSuggestion(c, model.KindExam)
}

// PutSolutionSuggestion stages a base64-encoded solution PDF for moderation.
func (h *Handler) PutSolutionSuggestion(c *gin.Context) {
	h.putSuggestion(c, model.KindSolution)
}

func (h *Handler) putSuggestion(c *gin.Context, kind model.AttachmentKind) {
	code := c.Param("code")
	date := c.Param("date")

	var body model.SuggestionPut
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}

	encoded := body.Exam
	if kind == model.KindSolution {
		encoded = body.Solution
	}
	if encoded == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}

	result, err := h.repo.GetResult(c.Request.Context(), code, date)
	if err == errors.ErrResultNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("code", code).Str("taken", date).Msg("Failed to load result")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if result.HasAttachment(kind) {
		c.JSON(http.StatusConflict, gin.H{"error": msgConflict})
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}

	suggestion := &model.Suggestion{
		Code:  code,
		Taken: date,
	}
	switch kind {
	case model.KindExam:
		suggestion.Exam = decoded
	case model.KindSolution:
		suggestion.Solution = decoded
	}

	if err := h.repo.InsertSuggestion(c.Request.Context(), suggestion); err != nil {
		h.log.Error().Err(err).Str("code", code).Str("taken", date).Msg("Failed to insert suggestion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.log.Info().Str("code", code).Str("taken", date).Str("kind", string(kind)).
		Msg("Inserted attachment suggestion")
	c.Status(http.StatusOK)
}

// baseURL is used to render attachment links; configuration wins over the request
// host so reverse proxies produce stable URLs.
func (h *Handler) baseURL(c *gin.Context) string {
	if h.cfg.Server.ExternalURL != "" {
		return h.cfg.Server.ExternalURL
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func courseResult(r *model.ExamResult, base string) model.CourseResult {
	out := model.CourseResult{
		Code:     r.Code,
		Name:     r.Name,
		Taken:    r.Taken,
		Failures: r.Failures,
		Threes:   r.Threes,
		Fours:    r.Fours,
		Fives:    r.Fives,
	}

	if r.HasAttachment(model.KindExam) {
		url := fmt.Sprintf("%s/courses/%s/%s/exam", base, r.Code, r.Taken)
		out.Exam = &url
	}
	if r.HasAttachment(model.KindSolution) {
		url := fmt.Sprintf("%s/courses/%s/%s/solution", base, r.Code, r.Taken)
		out.Solution = &url
	}

	return out
}

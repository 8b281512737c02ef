package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"geoanomaly/app"
	domainaudit "geoanomaly/domain/audit"
	"geoanomaly/domain/core"
	"geoanomaly/domain/scoring"
	"geoanomaly/internal/errors"
	"geoanomaly/internal/report"
)

// Server exposes the core's logical operations over HTTP. It is a thin
// translation layer: all semantics live in the app services.
type Server struct {
	router      *gin.Engine
	analysis    *app.AnalysisService
	scoring     *app.ScoringService
	predictions *app.PredictionService
	narrative   *report.Narrative
}

// NewServer creates an API server and registers routes
func NewServer(analysis *app.AnalysisService, scoringSvc *app.ScoringService, predictions *app.PredictionService) *Server {
	s := &Server{
		router:      gin.Default(),
		analysis:    analysis,
		scoring:     scoringSvc,
		predictions: predictions,
		narrative:   report.NewNarrative(),
	}
	s.registerRoutes()
	return s
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/grid/rebuild", s.handleRebuildGrid)
		v1.POST("/analysis/cooccurrence", s.handleAnalyzeCooccurrence)
		v1.POST("/analysis/multi-resolution", s.handleMultiResolution)
		v1.POST("/submissions/score", s.handleScoreSubmission)
		v1.POST("/drafts/:draftId/audit", s.handleAuditScoringAttempt)
		v1.POST("/predictions/:predictionId/recompute", s.handleRecomputePrediction)
	}
}

func (s *Server) handleRebuildGrid(c *gin.Context) {
	resolution := queryFloat(c, "resolution", 0)
	snap, err := s.analysis.RebuildGrid(c.Request.Context(), resolution)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":     snap.RunID.String(),
		"resolution": snap.Resolution,
		"cell_count": len(snap.Cells),
	})
}

func (s *Server) handleAnalyzeCooccurrence(c *gin.Context) {
	resolution := queryFloat(c, "resolution", 0)
	shuffles := queryInt(c, "shuffles", 0)
	stratify := c.Query("stratify") == "true"

	result, err := s.analysis.AnalyzeCooccurrence(c.Request.Context(), resolution, shuffles, stratify)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte(s.narrative.HTML(s.narrative.Markdown(result))))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMultiResolution(c *gin.Context) {
	shuffles := queryInt(c, "shuffles", 0)
	result, err := s.analysis.AnalyzeMultiResolution(c.Request.Context(), shuffles)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScoreSubmission(c *gin.Context) {
	var sub scoring.SubScores
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-score payload"})
		return
	}
	breakdown, err := s.scoring.ScoreSubmission(sub)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

type auditRequest struct {
	State domainaudit.DraftState `json:"state"`
	Score float64                `json:"score"`
}

func (s *Server) handleAuditScoringAttempt(c *gin.Context) {
	draftID, err := core.ParseDraftID(c.Param("draftId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audit payload"})
		return
	}

	outcome, err := s.scoring.AuditScoringAttempt(c.Request.Context(), draftID, req.State, req.Score)
	if err != nil && !outcome.Accepted && errors.GetCode(err) == errors.CodeValidationError {
		// Hard-validation rejection: user-visible, with offending fields.
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"accepted": false,
			"error":    err.Error(),
			"fields":   outcome.Fields,
		})
		return
	}
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleRecomputePrediction(c *gin.Context) {
	id, err := core.ParsePredictionID(c.Param("predictionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := s.predictions.RecomputeStatus(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prediction_id": id.String(), "status": status})
}

func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case core.IsInvalidInputError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsConflictError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		switch errors.GetCode(err) {
		case errors.CodeValidationError, errors.CodeInvalidInput:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.CodeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.CodeConflict:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	if v := c.Query(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

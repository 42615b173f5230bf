package calls

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/sessions"
	"callinsights-backend/internal/shared/server/middleware"
	"callinsights-backend/internal/shared/server/respond"
)

const defaultStreamInterval = 250 * time.Millisecond

// Handler wires the dashboard HTTP surface to the calls service.
type Handler struct {
	Svc *Service
	// LoginURL and CallbackPath build the login address /me reports to callers
	// without a credential.
	LoginURL       string
	CallbackPath   string
	StreamInterval time.Duration
}

func NewHandler(svc *Service, loginURL, callbackPath string, streamInterval time.Duration) *Handler {
	return &Handler{Svc: svc, LoginURL: loginURL, CallbackPath: callbackPath, StreamInterval: streamInterval}
}

// RegisterRoutes attaches dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.GET("/jobs", h.listJobs)

	d := rg.Group("/dashboard")
	d.GET("", h.getDashboard)
	d.POST("/jobs", h.startJob)
	d.POST("/reset", h.reset)
	d.POST("/sections/:id/hide", h.hideSection)
	d.POST("/sections/reorder", h.reorderSections)
	d.POST("/drag/down", h.dragDown)
	d.POST("/drag/move", h.dragMove)
	d.POST("/drag/up", h.dragUp)
	d.POST("/drag/cancel", h.dragCancel)
	d.GET("/progress/stream", h.streamProgress)
}

func (h *Handler) session(c *gin.Context) *sessions.Session {
	return h.Svc.Sessions.GetOrCreate(middleware.SessionIDFromContext(c))
}

func (h *Handler) view(c *gin.Context, sess *sessions.Session) DashboardView {
	principal := sess.Access.Resolve(c.Request.Context(), middleware.CredentialFromContext(c))
	state, active := sess.Drag.State()
	return BuildView(sess.Dashboard.Snapshot(), sess.Dashboard.Order(), state, active, principal.Role)
}

func (h *Handler) me(c *gin.Context) {
	sess := h.session(c)
	credential := middleware.CredentialFromContext(c)
	principal := sess.Access.Resolve(c.Request.Context(), credential)

	response := gin.H{
		"name":  principal.UserName,
		"email": principal.UserEmail,
		"role":  principal.Role,
	}
	if credential == "" && h.LoginURL != "" {
		response["loginUrl"] = middleware.LoginURL(h.LoginURL, middleware.RequestOrigin(c.Request), h.CallbackPath)
	}
	respond.OK(c, response)
}

func (h *Handler) getDashboard(c *gin.Context) {
	respond.OK(c, h.view(c, h.session(c)))
}

type startJobRequest struct {
	Files       []string `json:"files"`
	ModelOption string   `json:"modelOption"`
}

func (h *Handler) startJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	sessionID := middleware.SessionIDFromContext(c)
	prev := h.session(c).Dashboard.Phase()
	ctx := withRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	job, err := h.Svc.StartJob(ctx, sessionID, req.Files, req.ModelOption)
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrEmptySelection):
			respond.Error(c, http.StatusBadRequest, "validation_error", "select at least one audio file", []map[string]string{
				{"field": "files", "issue": "empty"},
			})
		case errors.Is(err, dashboard.ErrJobInProgress):
			respond.Error(c, http.StatusConflict, "job_in_progress", "a job is already processing", nil)
		case errors.Is(err, ErrRemoteUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "analysis service not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start job", nil)
		}
		return
	}

	c.Set(middleware.JobIDKey, job.ID)
	c.Set(middleware.StatusTransitionKey, transition(prev, dashboard.PhaseProcessing))
	respond.Accepted(c, h.view(c, h.session(c)))
}

func (h *Handler) reset(c *gin.Context) {
	prev := h.session(c).Dashboard.Phase()
	ctx := withRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	h.Svc.Reset(ctx, middleware.SessionIDFromContext(c))
	c.Set(middleware.StatusTransitionKey, transition(prev, dashboard.PhaseIdle))
	respond.OK(c, h.view(c, h.session(c)))
}

func transition(from, to dashboard.Phase) string {
	return string(from) + "->" + string(to)
}

func (h *Handler) hideSection(c *gin.Context) {
	sess := h.session(c)
	if err := sess.Dashboard.Hide(dashboard.SectionID(c.Param("id"))); err != nil {
		h.sectionError(c, err)
		return
	}
	respond.OK(c, h.view(c, sess))
}

type reorderRequest struct {
	ID       dashboard.SectionID  `json:"id"`
	BeforeID *dashboard.SectionID `json:"beforeId"`
}

func (h *Handler) reorderSections(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id is required", nil)
		return
	}
	sess := h.session(c)
	if err := sess.Dashboard.Reorder(req.ID, req.BeforeID); err != nil {
		h.sectionError(c, err)
		return
	}
	respond.OK(c, h.view(c, sess))
}

func (h *Handler) sectionError(c *gin.Context, err error) {
	if errors.Is(err, dashboard.ErrUnknownSection) {
		respond.Error(c, http.StatusNotFound, "not_found", "section not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update layout", nil)
}

type dragDownRequest struct {
	SectionID dashboard.SectionID `json:"sectionId"`
	X         float64             `json:"x"`
	Y         float64             `json:"y"`
	Rects     []dashboard.Rect    `json:"rects"`
}

type dragMoveRequest struct {
	X     float64          `json:"x"`
	Y     float64          `json:"y"`
	Rects []dashboard.Rect `json:"rects"`
}

func (h *Handler) dragDown(c *gin.Context) {
	var req dragDownRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SectionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sectionId is required", nil)
		return
	}
	sess := h.session(c)
	armed := sess.Drag.PointerDown(req.SectionID, dashboard.Point{X: req.X, Y: req.Y}, req.Rects)
	state, _ := sess.Drag.State()
	respond.OK(c, gin.H{"armed": armed, "state": state})
}

func (h *Handler) dragMove(c *gin.Context) {
	var req dragMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	sess := h.session(c)
	target, ok := sess.Drag.PointerMove(dashboard.Point{X: req.X, Y: req.Y}, req.Rects)
	state, _ := sess.Drag.State()
	response := gin.H{"state": state, "target": nil}
	if ok {
		response["target"] = target
	}
	respond.OK(c, response)
}

func (h *Handler) dragUp(c *gin.Context) {
	sess := h.session(c)
	moved, target, err := sess.Drag.PointerUp()
	if err != nil {
		h.sectionError(c, err)
		return
	}
	response := gin.H{"moved": moved, "target": nil, "order": sess.Dashboard.Project()}
	if target != "" {
		response["target"] = target
	}
	respond.OK(c, response)
}

func (h *Handler) dragCancel(c *gin.Context) {
	sess := h.session(c)
	sess.Drag.Cancel()
	state, _ := sess.Drag.State()
	respond.OK(c, gin.H{"state": state})
}

// streamProgress pushes {phase, progress} events until the session leaves
// Processing or the client goes away.
func (h *Handler) streamProgress(c *gin.Context) {
	sess := h.session(c)
	interval := h.StreamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-ticker.C:
			}
		}
		first = false
		phase := sess.Dashboard.Phase()
		c.SSEvent("progress", gin.H{"phase": phase, "progress": sess.Dashboard.Progress()})
		return phase == dashboard.PhaseProcessing
	})
}

func (h *Handler) listJobs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be between 1 and 100", nil)
			return
		}
		limit = parsed
	}
	runs, err := h.Svc.History(c.Request.Context(), middleware.SessionIDFromContext(c), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	respond.OK(c, gin.H{"items": runs})
}

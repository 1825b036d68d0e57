package applications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/forms"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

const maxFormBodySize = 1 << 20 // 1MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches onboarding routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/onboarding/steps", h.steps)
	rg.GET("/onboarding/navigation", h.navigation)
	rg.GET("/onboarding/forms", h.definitions)
	rg.GET("/applications/current", h.current)
	rg.GET("/applications/current/progress", h.progress)
	rg.GET("/applications/current/forms/:formKey", h.getForm)
	rg.PUT("/applications/current/forms/:formKey", h.saveForm)
}

func (h *Handler) steps(c *gin.Context) {
	respond.OK(c, gin.H{
		"steps":        forms.Steps(),
		"fallbackPath": forms.FallbackPath,
	})
}

func (h *Handler) navigation(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "path is required", nil)
		return
	}
	respond.OK(c, forms.Navigate(path))
}

func (h *Handler) definitions(c *gin.Context) {
	respond.OK(c, gin.H{"forms": forms.Definitions()})
}

func (h *Handler) current(c *gin.Context) {
	app, err := h.Svc.Current(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err, "failed to load application")
		return
	}
	c.Set(middleware.ApplicationIDKey, app.ID)
	respond.NoStore(c)
	respond.OK(c, toApplicationResponse(app))
}

func (h *Handler) progress(c *gin.Context) {
	progress, err := h.Svc.Progress(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err, "failed to compute progress")
		return
	}
	respond.NoStore(c)
	respond.OK(c, progress)
}

func (h *Handler) getForm(c *gin.Context) {
	key, ok := h.formKey(c)
	if !ok {
		return
	}
	rec, err := h.Svc.GetForm(c.Request.Context(), middleware.UserIDFromContext(c), key)
	if err != nil {
		h.fail(c, err, "failed to load form")
		return
	}
	c.Set(middleware.ApplicationIDKey, rec.ApplicationID)
	respond.NoStore(c)
	respond.OK(c, toFormResponse(rec))
}

func (h *Handler) saveForm(c *gin.Context) {
	key, ok := h.formKey(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormBodySize)

	var req saveFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Code(c, respond.CodePayloadTooLarge, "request body too large", gin.H{"limit": tooLarge.Limit})
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	res, err := h.Svc.SaveForm(c.Request.Context(), middleware.UserIDFromContext(c), key, SaveInput{
		Status:    req.Status,
		Data:      req.Data,
		RequestID: middleware.RequestIDFromContext(c),
	})
	if err != nil {
		h.fail(c, err, "failed to save form")
		return
	}

	c.Set(middleware.ApplicationIDKey, res.Application.ID)
	c.Set(middleware.StatusTransitionKey, string(res.Previous)+"->"+string(res.Form.Status))
	respond.OK(c, SaveFormResponse{
		Form:              toFormResponse(res.Form),
		ApplicationStatus: res.Application.Status,
		Progress:          res.Progress,
		NextPath:          res.NextPath,
		PreviousPath:      res.PreviousPath,
	})
}

func (h *Handler) formKey(c *gin.Context) (forms.FormKey, bool) {
	raw := c.Param("formKey")
	key, ok := forms.ParseFormKey(raw)
	if !ok {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "unknown form", gin.H{"formKey": raw})
		return "", false
	}
	c.Set(middleware.FormKeyKey, string(key))
	return key, true
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	var validation *ValidationError
	var transition *TransitionError
	switch {
	case errors.As(err, &validation):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "required fields missing", gin.H{"fields": validation.Fields})
	case errors.As(err, &transition):
		respond.Error(c, http.StatusConflict, respond.CodeInvalidTransition, transition.Error(), gin.H{
			"from": transition.From,
			"to":   transition.To,
		})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}

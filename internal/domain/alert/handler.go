package alert

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/renalwatch/renalwatch/internal/platform/auth"
	"github.com/renalwatch/renalwatch/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("clinician", "admin"))
	g.GET("/alerts", h.ListAlerts)
	g.GET("/alerts/:id", h.GetAlert)
	g.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
	g.POST("/alerts/:id/dismiss", h.DismissAlert)
}

func (h *Handler) ListAlerts(c echo.Context) error {
	var f ListFilter
	if raw := c.QueryParam("patient_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = pid
	}
	if status := c.QueryParam("status"); status != "" {
		switch status {
		case StatusOpen, StatusAcknowledged, StatusDismissed:
			f.Status = status
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	pg := pagination.FromContext(c)
	alerts, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	return c.JSON(http.StatusOK, a)
}

type actionRequest struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
}

func (h *Handler) AcknowledgeAlert(c echo.Context) error {
	return h.transition(c, h.svc.Acknowledge)
}

func (h *Handler) DismissAlert(c echo.Context) error {
	return h.transition(c, h.svc.Dismiss)
}

func (h *Handler) transition(c echo.Context, apply func(ctx context.Context, id, clinicianID uuid.UUID) (*Alert, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ClinicianID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinician_id is required")
	}

	a, err := apply(c.Request().Context(), id, req.ClinicianID)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	case errors.Is(err, ErrStateConflict):
		return echo.NewHTTPError(http.StatusConflict, "alert state changed")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

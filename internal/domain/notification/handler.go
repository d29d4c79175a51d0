package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/renalwatch/renalwatch/internal/platform/auth"
	"github.com/renalwatch/renalwatch/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("clinician", "admin"))
	g.GET("/alerts/:id/notifications", h.ListAlertNotifications)
	g.GET("/notifications", h.ListClinicianNotifications)
	g.GET("/clinicians/:id/preferences", h.GetPreferences)
	g.PUT("/clinicians/:id/preferences", h.PutPreferences)
}

func (h *Handler) ListAlertNotifications(c echo.Context) error {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}
	logs, err := h.repo.ListLogsByAlert(c.Request().Context(), alertID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *Handler) ListClinicianNotifications(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.QueryParam("clinician_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinician_id is required")
	}
	pg := pagination.FromContext(c)
	logs, total, err := h.repo.ListLogsByClinician(c.Request().Context(), clinicianID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPreferences(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	p, err := h.repo.GetPreference(c.Request().Context(), clinicianID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusOK, DefaultPreference(clinicianID))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) PutPreferences(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	var p Preference
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ClinicianID = clinicianID
	if err := h.repo.SavePreference(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

package checkin

import (
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
	g := api.Group("", auth.RequireRole("patient", "clinician", "admin"))
	g.POST("/checkins", h.CreateCheckin)
	g.GET("/checkins", h.ListCheckins)
	g.GET("/checkins/:id", h.GetCheckin)
}

func (h *Handler) CreateCheckin(c echo.Context) error {
	var ci Checkin
	if err := c.Bind(&ci); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &ci); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ci)
}

func (h *Handler) GetCheckin(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ci, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "checkin not found")
	}
	return c.JSON(http.StatusOK, ci)
}

func (h *Handler) ListCheckins(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pg := pagination.FromContext(c)
	checkins, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(checkins, total, pg.Limit, pg.Offset))
}

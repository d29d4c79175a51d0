package measurement

import (
	"net/http"
	"time"

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
	write := api.Group("", auth.RequireRole("patient", "clinician", "admin"))
	write.POST("/measurements", h.RecordMeasurement)

	read := api.Group("", auth.RequireRole("clinician", "admin", "patient"))
	read.GET("/measurements", h.ListMeasurements)
	read.GET("/measurements/:id", h.GetMeasurement)
}

func (h *Handler) RecordMeasurement(c echo.Context) error {
	var m Measurement
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	stored, created, err := h.svc.Record(c.Request().Context(), &m)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !created {
		return c.JSON(http.StatusOK, stored)
	}
	return c.JSON(http.StatusCreated, stored)
}

func (h *Handler) GetMeasurement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "measurement not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMeasurements(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC3339")
		}
	}

	pg := pagination.FromContext(c)
	meas, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, c.QueryParam("type"), since, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(meas, total, pg.Limit, pg.Offset))
}

package clinician

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
	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/clinicians", h.CreateClinician)
	admin.POST("/enrollments", h.CreateEnrollment)
	admin.DELETE("/enrollments/:id", h.EndEnrollment)

	read := api.Group("", auth.RequireRole("clinician", "admin"))
	read.GET("/clinicians", h.ListClinicians)
	read.GET("/clinicians/:id", h.GetClinician)
	read.GET("/patients/:id/clinicians", h.ListPatientClinicians)
}

func (h *Handler) CreateClinician(c echo.Context) error {
	var cl Clinician
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClinician(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinician not found")
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClinicians(c echo.Context) error {
	pg := pagination.FromContext(c)
	clins, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(clins, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateEnrollment(c echo.Context) error {
	var e Enrollment
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Enroll(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) EndEnrollment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.EndEnrollment(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "active enrollment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientClinicians(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	clins, err := h.svc.ActiveForPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, clins)
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/planweave/core/internal/application/services"
	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/infrastructure/logger"
	"github.com/planweave/core/internal/ports"
)

const dateParamLayout = "2006-01-02"

// MessageResponse is a generic message payload
type MessageResponse struct {
	Message string `json:"message"`
}

// ScheduleHandler handles schedule and series requests
type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	logger          *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleService *services.ScheduleService, logger *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// CreateSchedule materializes and persists a schedule template
func (h *ScheduleHandler) CreateSchedule(c echo.Context) error {
	var req ports.CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ids, err := h.scheduleService.CreateSeries(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Create series failed", "error", err)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"occurrence_ids": ids,
		"count":          len(ids),
	})
}

// GetSchedule returns one occurrence
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid schedule ID")
	}

	occ, err := h.scheduleService.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, occ)
}

// UpdateSchedule mutates one occurrence; ?update_dates=false keeps the
// stored start/end dates untouched.
func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid schedule ID")
	}

	updateDates := true
	if raw := c.QueryParam("update_dates"); raw != "" {
		updateDates, err = strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid update_dates flag")
		}
	}

	var req ports.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.scheduleService.UpdateSchedule(c.Request().Context(), id, req, updateDates); err != nil {
		h.logger.Errorw("Update schedule failed", "error", err, "schedule_id", id)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Schedule updated"})
}

// DeleteSchedule removes one occurrence
func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid schedule ID")
	}

	if err := h.scheduleService.DeleteSchedule(c.Request().Context(), id); err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Schedule deleted"})
}

// GetSeries returns all occurrences of a series
func (h *ScheduleHandler) GetSeries(c echo.Context) error {
	seriesID, err := uuid.Parse(c.Param("seriesId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid series ID")
	}

	occurrences, err := h.scheduleService.GetSeries(c.Request().Context(), seriesID)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, occurrences)
}

// UpdateSeries applies a non-date edit to every occurrence of a series
func (h *ScheduleHandler) UpdateSeries(c echo.Context) error {
	seriesID, err := uuid.Parse(c.Param("seriesId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid series ID")
	}

	var req ports.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.scheduleService.UpdateSeries(c.Request().Context(), seriesID, req); err != nil {
		h.logger.Errorw("Update series failed", "error", err, "series_id", seriesID)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Series updated"})
}

// DeleteSeries removes every occurrence of a series
func (h *ScheduleHandler) DeleteSeries(c echo.Context) error {
	seriesID, err := uuid.Parse(c.Param("seriesId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid series ID")
	}

	if err := h.scheduleService.DeleteSeries(c.Request().Context(), seriesID); err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Series deleted"})
}

// DeleteFollowing removes the tail of a series from an anchor date
func (h *ScheduleHandler) DeleteFollowing(c echo.Context) error {
	seriesID, err := uuid.Parse(c.Param("seriesId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid series ID")
	}

	var req ports.DeleteFollowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	deleted, err := h.scheduleService.DeleteFollowing(c.Request().Context(), seriesID, req.Anchor, req.IncludeAnchor)
	if err != nil {
		h.logger.Errorw("Delete following failed", "error", err, "series_id", seriesID)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}

// PlanHandler handles merged day-view requests
type PlanHandler struct {
	plannerService *services.PlannerService
	logger         *logger.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plannerService *services.PlannerService, logger *logger.Logger) *PlanHandler {
	return &PlanHandler{
		plannerService: plannerService,
		logger:         logger,
	}
}

// GetDay returns the merged day view for ?date=YYYY-MM-DD
func (h *PlanHandler) GetDay(c echo.Context) error {
	day, err := parseDateParam(c)
	if err != nil {
		return err
	}

	h.plannerService.SelectDay(day)

	items, err := h.plannerService.MergedDay(c.Request().Context(), day)
	if err != nil {
		h.logger.Errorw("Merged day view failed", "error", err, "day", day)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":  day.Format(dateParamLayout),
		"items": items,
	})
}

// GetCurrent returns the last published view of the selected day without
// forcing a recompute.
func (h *PlanHandler) GetCurrent(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":  h.plannerService.SelectedDay().Format(dateParamLayout),
		"items": h.plannerService.CurrentView(),
	})
}

// HasSchedule reports whether any local occurrence exists on ?date=
func (h *PlanHandler) HasSchedule(c echo.Context) error {
	day, err := parseDateParam(c)
	if err != nil {
		return err
	}

	has, err := h.plannerService.HasSchedule(c.Request().Context(), day)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":         day.Format(dateParamLayout),
		"has_schedule": has,
	})
}

func parseDateParam(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
	}
	day, err := time.ParseInLocation(dateParamLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return day, nil
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, entities.ErrScheduleNotFound), errors.Is(err, entities.ErrSeriesNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidTimeRange),
		errors.Is(err, entities.ErrInvalidRepeatRule),
		errors.Is(err, entities.ErrEmptyTitle):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

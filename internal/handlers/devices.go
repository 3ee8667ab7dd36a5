package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"building_telemetry/internal/models"
	"building_telemetry/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

// parseRange reads optional from/to query parameters. A date-only 'to' covers the whole day.
// It writes a 400 and returns false when either value is malformed.
func parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return time.Time{}, time.Time{}, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return time.Time{}, time.Time{}, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	return from, to, true
}

// @Summary      Series points
// @Description  Points of a stored series: a reading kind (temperature, co2, light, moisture, movement, decibel, pulses) or rate, energy_hourly, occupancy.
// @Tags         devices
// @Produce      json
// @Param        id      path    string  true   "Device id"
// @Param        series  path    string  true   "Series name"  example(co2)
// @Param        from    query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to      query   string  false  "End of range. Date-only is treated as end of day."
// @Success      200     {object}  map[string]interface{}  "device_id, series, count, points"
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/devices/{id}/series/{series} [get]
// @Security     BearerAuth
func (h *Handler) getSeries(c *gin.Context) {
	deviceID := c.Param("id")
	series, err := models.ParseSeries(strings.ToLower(c.Param("series")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	points, err := h.services.Points(c.Request.Context(), deviceID, series, service.SeriesFilter{From: from, To: to})
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load series", "series_list_failed", err,
			"device_id", deviceID, "series", series)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"series":    series,
		"count":     len(points),
		"points":    points,
	})
}

// @Summary      List deviations
// @Tags         devices
// @Produce      json
// @Param        id    path    string  true   "Device id"
// @Param        from  query   string  false  "Start of range"
// @Param        to    query   string  false  "End of range. Date-only is treated as end of day."
// @Param        kind  query   string  false  "Deviation kind"  Enums(co2,moisture,temperature)
// @Success      200   {object}  map[string]interface{}  "count, deviations"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/devices/{id}/deviations [get]
// @Security     BearerAuth
func (h *Handler) getDeviations(c *gin.Context) {
	deviceID := c.Param("id")
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	devs, err := h.services.Deviations(c.Request.Context(), deviceID, service.DeviationFilter{
		From: from,
		To:   to,
		Kind: c.Query("kind"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load deviations", "deviations_list_failed", err,
			"device_id", deviceID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(devs),
		"deviations": devs,
	})
}

// @Summary      Latest derived state
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  models.DeviceSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/devices/{id}/snapshot [get]
// @Security     BearerAuth
func (h *Handler) getSnapshot(c *gin.Context) {
	deviceID := c.Param("id")
	snap, err := h.services.Snapshot(c.Request.Context(), deviceID)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load snapshot", "snapshot_failed", err,
			"device_id", deviceID)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Backfill hourly energy
// @Description  Aggregates every missing complete hour of a power meter now.
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  map[string]interface{}  "device_id, written"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/v1/devices/{id}/backfill [post]
// @Security     BearerAuth
func (h *Handler) runBackfill(c *gin.Context) {
	deviceID := c.Param("id")
	n, err := h.services.Backfill.Backfill(c.Request.Context(), deviceID)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("backfill_failed", "device_id", deviceID, "written", n, "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backfill incomplete", "written": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID, "written": n})
}

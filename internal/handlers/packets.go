package handlers

import (
	"errors"
	"io"
	"net/http"

	"building_telemetry/internal/service"

	"github.com/gin-gonic/gin"
)

const maxPacketBody = 1 << 20

// @Summary      Push one telemetry event
// @Description  Accepts a mesh event {"selector":[network,device],"datetime":RFC3339,"proto/tm":{...}} and runs it through the derivation pipeline.
// @Tags         packets
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/packets [post]
// @Security     BearerAuth
func (h *Handler) postPacket(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPacketBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	pkt, err := h.parser.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.services.Dispatch(c.Request.Context(), pkt)
	if err == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	var (
		stageErr  *service.StageError
		decodeErr *service.DecodeError
		stage     string
	)
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}
	switch {
	case errors.Is(err, service.ErrUnknownDevice):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
	case errors.As(err, &decodeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": decodeErr.Error(), "stage": stage})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to process packet", "packet_failed", err,
			"selector", pkt.Selector.String(), "stage", stage)
	}
}


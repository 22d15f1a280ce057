package handler

import (
	"net/http"
	"strings"

	"funding-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TriggerCollect godoc
// @Summary      Run one collection cycle
// @Description  Fans out to every exchange now, persists snapshots and refreshes the caches
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CycleResult
// @Failure      500  {object}  map[string]string
// @Router       /api/collect [post]
func (h *Handler) TriggerCollect(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-collect")
	defer span.End()

	res, err := h.funding.RunCycle(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// TriggerBackfill godoc
// @Summary      Backfill one (token, exchange) history partition
// @Description  Fetches the missing trailing window synchronously and merges it into the stored series
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        token   query  string  true  "Token symbol (e.g. BTC)"
// @Param        source  query  string  true  "Exchange (vest, paradex, ext, hyperliquid)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/backfill [post]
func (h *Handler) TriggerBackfill(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-backfill")
	defer span.End()

	token := strings.ToUpper(strings.TrimSpace(c.Query("token")))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	source, ok := domain.ParseExchange(c.Query("source"))
	if !ok || !source.SupportsHistory() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "source must be a history-capable exchange",
			"sources": domain.HistoryExchanges,
		})
		return
	}

	span.SetAttributes(attribute.String("token", token), attribute.String("source", string(source)))

	written, err := h.backfiller.BackfillPartition(ctx, token, source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "source": source, "written": written})
}

// TriggerBackfillAll godoc
// @Summary      Enqueue backfills for every tracked token and history venue
// @Description  Queues the token x exchange cross product onto the backfill workers
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  map[string]int
// @Failure      500  {object}  map[string]string
// @Router       /api/backfill/all [post]
func (h *Handler) TriggerBackfillAll(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.trigger-backfill-all")
	defer span.End()

	if h.queue == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backfill queue unavailable"})
		return
	}
	accepted := h.queue.EnqueueAll(h.tokens)
	span.SetAttributes(attribute.Int("accepted", accepted))
	c.JSON(http.StatusAccepted, gin.H{"queued": accepted})
}

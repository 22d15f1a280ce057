package handler

import (
	"net/http"
	"strings"
	"time"

	"funding-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetSnapshots godoc
// @Summary      Audit read over stored funding snapshots
// @Description  Returns the per-cycle snapshot rows for one token, optionally narrowed to one exchange
// @Tags         funding
// @Produce      json
// @Param        symbol    query  string  true   "Token symbol (e.g. BTC)"
// @Param        exchange  query  string  false  "Exchange filter"
// @Param        days      query  int     false  "Trailing window in days"  default(7)
// @Success      200  {array}   domain.SnapshotPoint
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/snapshots [get]
func (h *Handler) GetSnapshots(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-snapshots")
	defer span.End()

	if h.snapshots == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot storage unavailable"})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	var exchange domain.Exchange
	if raw := c.Query("exchange"); raw != "" {
		ex, ok := domain.ParseExchange(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange: " + raw})
			return
		}
		exchange = ex
	}
	days := parseDays(c.Query("days"), 7)

	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", days))

	to := time.Now().UTC()
	points, err := h.snapshots.GetRange(ctx, symbol, exchange, to.AddDate(0, 0, -days), to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, points)
}

package handler

import (
	"net/http"
	"strings"

	"funding-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetOpportunities godoc
// @Summary      Cross-exchange funding spreads
// @Description  Detects long/short funding spreads over the latest cycle, sorted by annualized return
// @Tags         funding
// @Produce      json
// @Param        exchanges  query  string  false  "Comma-separated exchange subset (default: all)"
// @Param        required   query  string  false  "Exchange that must sit at one extreme"
// @Param        timeframe  query  string  false  "Display basis: 1h, 8h or 1y"  default(1h)
// @Success      200  {array}   arbitrage.Opportunity
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/opportunities [get]
func (h *Handler) GetOpportunities(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-opportunities")
	defer span.End()

	var exchanges []domain.Exchange
	if raw := c.Query("exchanges"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			ex, ok := domain.ParseExchange(part)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange: " + part})
				return
			}
			exchanges = append(exchanges, ex)
		}
	}

	var required domain.Exchange
	if raw := c.Query("required"); raw != "" {
		ex, ok := domain.ParseExchange(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange: " + raw})
			return
		}
		required = ex
	}

	tf, ok := domain.ParseTimeframe(c.Query("timeframe"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timeframe: " + c.Query("timeframe")})
		return
	}

	opps, err := h.funding.Opportunities(ctx, exchanges, required, tf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("opportunities", len(opps)))
	c.JSON(http.StatusOK, opps)
}

package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"funding-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetFunding godoc
// @Summary      Latest normalized funding rates
// @Description  Returns one row per token with the hourly funding fraction per exchange; venues without data are null
// @Tags         funding
// @Produce      json
// @Success      200  {array}   domain.FundingRow
// @Failure      500  {object}  map[string]string
// @Router       /api/funding [get]
func (h *Handler) GetFunding(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-funding")
	defer span.End()

	rows, err := h.funding.LatestRows(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	c.JSON(http.StatusOK, rows)
}

type historyPoint struct {
	Date        string  `json:"date"`
	FundingRate float64 `json:"funding_rate"`
}

// GetFundingHistory godoc
// @Summary      Stored funding history for one token on one exchange
// @Description  Tops the series up from the venue, then returns the stored points ascending
// @Tags         funding
// @Produce      json
// @Param        symbol  query  string  true   "Token symbol (e.g. BTC)"
// @Param        source  query  string  true   "Exchange (vest, paradex, ext, hyperliquid)"
// @Param        days    query  int     false  "Trailing window in days"  default(30)
// @Success      200  {array}   historyPoint
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/funding-history [get]
func (h *Handler) GetFundingHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-funding-history")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	source, ok := domain.ParseExchange(c.Query("source"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source: " + c.Query("source")})
		return
	}
	if !source.SupportsHistory() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "no usable funding history for " + string(source),
			"sources": domain.HistoryExchanges,
		})
		return
	}
	days := parseDays(c.Query("days"), 30)

	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("source", string(source)),
		attribute.Int("days", days),
	)

	points, err := h.funding.History(ctx, symbol, source, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]historyPoint, 0, len(points))
	for _, p := range points {
		out = append(out, historyPoint{
			Date:        p.Time.UTC().Format(time.RFC3339),
			FundingRate: p.Rate,
		})
	}
	c.JSON(http.StatusOK, out)
}

func parseDays(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 365 {
		return fallback
	}
	return n
}

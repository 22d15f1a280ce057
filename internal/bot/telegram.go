package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"funding-radar/internal/arbitrage"
	"funding-radar/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type FundingReader interface {
	LatestRows(ctx context.Context) ([]domain.FundingRow, error)
	Opportunities(ctx context.Context, exchanges []domain.Exchange, required domain.Exchange, tf domain.Timeframe) ([]arbitrage.Opportunity, error)
}

func StartTelegramBot(funding FundingReader, token string) {
	if token == "" {
		log.Println("Telegram bot token not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/top", func(c tele.Context) error {
		opps, err := funding.Opportunities(context.Background(), nil, "", domain.Timeframe1h)
		if err != nil {
			return c.Send(fmt.Sprintf("Error detecting opportunities: %v", err))
		}
		if len(opps) == 0 {
			return c.Send("No funding spreads right now")
		}
		if len(opps) > 5 {
			opps = opps[:5]
		}
		var sb strings.Builder
		sb.WriteString("Top funding spreads:\n")
		for i, o := range opps {
			fmt.Fprintf(&sb, "%d. %s long %s / short %s, APR %.1f%%\n",
				i+1, o.Symbol, o.LongExchange, o.ShortExchange, o.APR)
		}
		return c.Send(sb.String())
	})

	b.Handle("/rate", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /rate BTC")
		}
		symbol := strings.ToUpper(args[0])
		rows, err := funding.LatestRows(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching rates: %v", err))
		}
		for _, row := range rows {
			if row.Symbol != symbol {
				continue
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "%s hourly funding:\n", symbol)
			for _, ex := range domain.AllExchanges {
				if p := row.Rate(ex); p != nil {
					fmt.Fprintf(&sb, "%s: %.6f%%\n", ex, *p*100)
				}
			}
			return c.Send(sb.String())
		}
		return c.Send(fmt.Sprintf("No rates for %s this cycle", symbol))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

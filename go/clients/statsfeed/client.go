// Package statsfeed reads final player statistics from the statistics feed
// collaborator. The feed pages its records with an opaque offset token.
package statsfeed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mcdev12/underline/go/clients"
	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 1
	// maxPages bounds a single fetch against a feed that never stops paging.
	maxPages = 200
)

// Config configures the feed client
type Config struct {
	BaseURL string
	APIKey  string
	Table   string // Path of the final statistics table
	RPS     float64
}

// Client fetches final statistics records
type Client struct {
	*clients.BaseClient
	table string
}

// NewClient creates a feed client authenticated with a bearer key
func NewClient(cfg Config) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRateLimit
	}
	table := cfg.Table
	if table == "" {
		table = "/final-statistics"
	}

	c := &Client{
		BaseClient: clients.NewBaseClient(strings.TrimRight(cfg.BaseURL, "/"), rps, defaultBurst),
		table:      table,
	}
	if cfg.APIKey != "" {
		c.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	c.SetHeader("Accept", "application/json")
	return c
}

type page struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type record struct {
	ID     string `json:"id"`
	Fields fields `json:"fields"`
}

type fields struct {
	Name       string           `json:"Name"`
	Category   string           `json:"Category"`
	Value      *decimal.Decimal `json:"Value"`
	DidNotPlay bool             `json:"DNP"`
}

// FinalStatistics returns every final record for date, following offsets
// until the feed stops returning one.
func (c *Client) FinalStatistics(ctx context.Context, date time.Time) ([]lines.StatRecord, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006-01-02"))

	var out []lines.StatRecord
	for pages := 0; ; pages++ {
		if pages == maxPages {
			return nil, fmt.Errorf("feed returned more than %d pages", maxPages)
		}

		var p page
		if err := c.GetJSON(ctx, c.table, params, &p); err != nil {
			return nil, fmt.Errorf("failed to get final statistics: %w", err)
		}

		for _, r := range p.Records {
			out = append(out, lines.StatRecord{
				PlayerName:  strings.TrimSpace(r.Fields.Name),
				Category:    strings.TrimSpace(r.Fields.Category),
				ActualValue: r.Fields.Value,
				DidNotPlay:  r.Fields.DidNotPlay,
			})
		}

		if p.Offset == "" {
			break
		}
		params.Set("offset", p.Offset)
	}

	log.Info().
		Str("date", date.Format("2006-01-02")).
		Int("records", len(out)).
		Msg("fetched final statistics")
	return out, nil
}

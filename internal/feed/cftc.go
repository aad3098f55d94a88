// Package feed downloads and parses the CFTC disaggregated futures report.
package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL   = "https://www.cftc.gov/files/dea/history"
	defaultUserAgent = "Mozilla/5.0 (compatible; COT-Data-Fetcher/1.0)"

	// Reports are published weekly; anything older than this is stale.
	StaleAfterDays = 10
)

// Client fetches yearly disaggregated futures report archives.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient builds a feed client. An empty baseURL selects the public CFTC
// history endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
	}
}

// FetchYear downloads the disaggregated futures ZIP for a year and returns
// the raw TXT report body.
func (c *Client) FetchYear(ctx context.Context, year int) (string, error) {
	url := fmt.Sprintf("%s/fut_disagg_txt_%d.zip", c.baseURL, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("feed: read response: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("feed: empty response from %s", url)
	}

	log.Debug().Int("year", year).Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).Msg("Fetched COT archive")

	return extractReport(body)
}

// extractReport pulls the first TXT entry out of the ZIP archive.
func extractReport(archive []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("feed: open archive: %w", err)
	}
	if len(reader.File) == 0 {
		return "", fmt.Errorf("feed: archive is empty")
	}

	for _, f := range reader.File {
		if !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("feed: open archive entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("feed: read archive entry %s: %w", f.Name, err)
		}
		if len(data) == 0 {
			return "", fmt.Errorf("feed: archive entry %s is empty", f.Name)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("feed: no TXT entry in archive")
}

// LatestFriday returns the most recent Friday at UTC midnight relative to
// now. Reports are published on Fridays after market close.
func LatestFriday(now time.Time) time.Time {
	now = now.UTC()
	weekday := int(now.Weekday()) // 0 = Sunday, 5 = Friday

	var daysBack int
	switch {
	case weekday == 5:
		daysBack = 0
	case weekday == 6:
		daysBack = 1
	case weekday == 0:
		daysBack = 2
	default:
		daysBack = weekday + 2
	}

	friday := now.AddDate(0, 0, -daysBack)
	return time.Date(friday.Year(), friday.Month(), friday.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckResult reports whether a newer report than the stored one is
// available upstream.
type CheckResult struct {
	NeedsUpdate      bool      `json:"needs_update"`
	LatestReportDate time.Time `json:"latest_report_date"`
}

// CheckNewer fetches the current year's report for the given contract code
// and compares the latest available report date to the stored one. A zero
// storedLatest always needs an update.
func (c *Client) CheckNewer(ctx context.Context, cotCode string, storedLatest time.Time) (*CheckResult, error) {
	raw, err := c.FetchYear(ctx, time.Now().UTC().Year())
	if err != nil {
		return nil, err
	}

	records, err := ParseMarket(raw, cotCode)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("feed: no rows for contract code %s", cotCode)
	}

	latest := records[len(records)-1].ReportDate
	return &CheckResult{
		NeedsUpdate:      latest.After(storedLatest),
		LatestReportDate: latest,
	}, nil
}

package icsfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/sallebot/internal/domain"
)

const DefaultTimeout = 30 * time.Second

var utf8BOM = []byte("\xef\xbb\xbf")

// Client downloads a published iCalendar feed over plain HTTP.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a feed client. A zero timeout means DefaultTimeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the feed address
func (c *Client) URL() string {
	return c.url
}

// FetchCalendars downloads the feed and decodes every VCALENDAR block in it.
func (c *Client) FetchCalendars(ctx context.Context) ([]*ical.Calendar, error) {
	body, err := c.download(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrFetch, resp.StatusCode)
	}

	return body, nil
}

// Decode parses an iCalendar document. It fails when the body holds no
// calendar at all.
func Decode(body []byte) ([]*ical.Calendar, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if err := validateFormat(body); err != nil {
		return nil, err
	}

	dec := ical.NewDecoder(bytes.NewReader(body))
	var cals []*ical.Calendar
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decode calendar: %w", domain.ErrFeedFormat, err)
		}
		cals = append(cals, cal)
	}

	if len(cals) == 0 {
		return nil, fmt.Errorf("%w: no calendar in feed", domain.ErrFeedFormat)
	}
	return cals, nil
}

func validateFormat(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	upper := strings.ToUpper(trimmed)

	// Login pages and error pages come back as HTML with a 200 status
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("%w: received HTML instead of iCalendar data", domain.ErrFeedFormat)
	}

	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("%w: expected BEGIN:VCALENDAR, got: %q", domain.ErrFeedFormat, preview)
	}
	return nil
}

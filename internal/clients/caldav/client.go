package caldav

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/tazhate/sallebot/internal/domain"
)

const (
	// Bookings further away than this are not requested from the server
	DefaultLookAhead = 90 * 24 * time.Hour
	// Bookings that ended before now minus this are not requested
	DefaultLookBehind = 24 * time.Hour
)

// Client reads room bookings from a CalDAV calendar collection
type Client struct {
	baseURL    string
	username   string
	password   string
	calendarID string // Optional: specific calendar to use
	lookAhead  time.Duration
	lookBehind time.Duration
	timeout    time.Duration
	now        func() time.Time

	mu     sync.Mutex
	client *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		lookAhead:  DefaultLookAhead,
		lookBehind: DefaultLookBehind,
		timeout:    timeout,
		now:        time.Now,
	}
}

// IsConfigured returns true if the client has a server and credentials
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// SetCalendarID sets the calendar to use
func (c *Client) SetCalendarID(id string) {
	c.calendarID = id
}

// CalendarID returns the calendar collection path in use
func (c *Client) CalendarID() string {
	return c.calendarID
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: c.timeout,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to CalDAV: %w", domain.ErrFetch, err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: find principal: %w", domain.ErrFetch, err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("%w: find home set: %w", domain.ErrFetch, err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("%w: find calendars: %w", domain.ErrFetch, err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// FetchCalendars returns every calendar object holding a VEVENT that overlaps
// the look-behind/look-ahead window around now.
func (c *Client) FetchCalendars(ctx context.Context) ([]*ical.Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	if c.calendarID == "" {
		return nil, fmt.Errorf("%w: calendar path not specified", domain.ErrFetch)
	}

	now := c.now()
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: now.Add(-c.lookBehind),
					End:   now.Add(c.lookAhead),
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, c.calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query calendar: %w", domain.ErrFetch, err)
	}

	cals := make([]*ical.Calendar, 0, len(objects))
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		cals = append(cals, obj.Data)
	}

	// An empty collection is indistinguishable from a misconfigured path
	if len(cals) == 0 {
		return nil, fmt.Errorf("%w: no calendar object in %s", domain.ErrFeedFormat, c.calendarID)
	}

	return cals, nil
}

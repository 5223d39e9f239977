// Package caldav publishes reminder schedules to an external CalDAV
// calendar. Each reminder becomes a single calendar object that is
// replaced wholesale on change (CalDAV PUT semantics).
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/export"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client pushes reminder events to a CalDAV server.
type Client struct {
	baseURL    string
	username   string
	password   string
	calendarID string // calendar path to publish into
	client     *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// SetCalendarID sets the calendar to publish into
func (c *Client) SetCalendarID(id string) {
	c.calendarID = id
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
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
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
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

// PublishReminder PUTs a single reminder's event to the calendar. A
// reminder that already has an object there gets replaced.
func (c *Client) PublishReminder(ctx context.Context, r *domain.Reminder, from time.Time) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if c.calendarID == "" {
		return fmt.Errorf("calendar path not specified")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//fintrack//reminders//EN")
	cal.Children = append(cal.Children, export.Event(r, from).Component)

	if _, err := client.PutCalendarObject(ctx, c.objectPath(r.ID), cal); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}

// PublishAll pushes every active reminder and removes objects for the
// inactive ones, so the remote calendar mirrors the current schedule.
func (c *Client) PublishAll(ctx context.Context, reminders []*domain.Reminder, from time.Time) error {
	for _, r := range reminders {
		if !r.Active {
			// Best effort: the object may never have existed.
			_ = c.Unpublish(ctx, r.ID)
			continue
		}
		if err := c.PublishReminder(ctx, r, from); err != nil {
			return err
		}
	}
	return nil
}

// Unpublish removes a reminder's calendar object
func (c *Client) Unpublish(ctx context.Context, reminderID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if c.calendarID == "" {
		return fmt.Errorf("calendar path not specified")
	}

	if err := client.RemoveAll(ctx, c.objectPath(reminderID)); err != nil {
		return fmt.Errorf("unpublish reminder: %w", err)
	}
	return nil
}

func (c *Client) objectPath(reminderID string) string {
	path := c.calendarID
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + reminderID + ".ics"
}

package caldav

// Calendar represents a calendar discovered on the CalDAV server
type Calendar struct {
	ID          string // Calendar path/URL
	DisplayName string
	Color       string
	URL         string
}

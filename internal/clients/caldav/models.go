package caldav

// Calendar represents a calendar collection on the CalDAV server
type Calendar struct {
	ID          string // Calendar path/URL
	DisplayName string
	URL         string
}

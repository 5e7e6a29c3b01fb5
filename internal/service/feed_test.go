package service_test

import (
	"fmt"
	"strings"
)

type testEvent struct {
	start    string
	end      string
	location string
}

// buildFeed renders a minimal iCalendar document. Empty fields are omitted.
func buildFeed(events ...testEvent) string {
	var sb strings.Builder
	sb.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//Rooms//FR\r\n")
	for i, e := range events {
		sb.WriteString("BEGIN:VEVENT\r\n")
		sb.WriteString(fmt.Sprintf("UID:%d@test\r\n", i))
		sb.WriteString("DTSTAMP:20240101T000000Z\r\n")
		if e.start != "" {
			sb.WriteString("DTSTART:" + e.start + "\r\n")
		}
		if e.end != "" {
			sb.WriteString("DTEND:" + e.end + "\r\n")
		}
		if e.location != "" {
			sb.WriteString("LOCATION:" + e.location + "\r\n")
		}
		sb.WriteString("SUMMARY:Cours\r\n")
		sb.WriteString("END:VEVENT\r\n")
	}
	sb.WriteString("END:VCALENDAR\r\n")
	return sb.String()
}

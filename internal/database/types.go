package database

import (
	"time"
)

// DateLayout and TimeLayout are the storage formats for session fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Identity represents a registered person with one or more reference
// face embeddings, ordered by enrollment position.
type Identity struct {
	ID         int64
	Name       string
	Embeddings [][]float64
	CreatedAt  time.Time
}

// Session represents one attendance interval for an identity on a given
// date. OutTime is empty while the session is still open.
//
// Date uses the "2006-01-02" layout, InTime and OutTime use "15:04:05".
type Session struct {
	ID      int64
	Name    string
	Date    string
	InTime  string
	OutTime string
}

// Open reports whether the session has no OUT time yet.
func (s *Session) Open() bool {
	return s.OutTime == ""
}

// InAt combines the session date and IN time into a full timestamp in the
// local time zone.
func (s *Session) InAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.InTime, time.Local)
}

// OutAt combines the session date and OUT time into a full timestamp in the
// local time zone. Only valid for closed sessions.
func (s *Session) OutAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.OutTime, time.Local)
}

// Package market knows the regular trading sessions of the major exchanges
package market

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Clock is a wall-clock time of day in the exchange's zone
type Clock struct {
	Hour, Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// Session is one exchange's regular weekday session. Both ends are inclusive.
type Session struct {
	Code     string
	Name     string
	Timezone string
	Open     Clock
	Close    Clock

	loc *time.Location
}

var sessions = []Session{
	{Code: "NYSE", Name: "NYSE/NASDAQ (US)", Timezone: "America/New_York", Open: Clock{9, 30}, Close: Clock{16, 0}},
	{Code: "TSX", Name: "Toronto (TSX)", Timezone: "America/Toronto", Open: Clock{9, 30}, Close: Clock{16, 0}},
	{Code: "LSE", Name: "London (LSE)", Timezone: "Europe/London", Open: Clock{8, 0}, Close: Clock{16, 30}},
	{Code: "FWB", Name: "Frankfurt (FWB)", Timezone: "Europe/Berlin", Open: Clock{8, 0}, Close: Clock{20, 0}},
	{Code: "TSE", Name: "Tokyo (TSE)", Timezone: "Asia/Tokyo", Open: Clock{9, 0}, Close: Clock{15, 0}},
	{Code: "HKEX", Name: "Hong Kong (HKEX)", Timezone: "Asia/Hong_Kong", Open: Clock{9, 30}, Close: Clock{16, 0}},
	{Code: "SSE", Name: "Shanghai (SSE)", Timezone: "Asia/Shanghai", Open: Clock{9, 30}, Close: Clock{15, 0}},
}

func init() {
	for i := range sessions {
		loc, err := time.LoadLocation(sessions[i].Timezone)
		if err != nil {
			panic(fmt.Sprintf("market: load %s: %v", sessions[i].Timezone, err))
		}
		sessions[i].loc = loc
	}
}

// Calendar is the set of sessions the bot knows about
type Calendar struct {
	Sessions []Session
}

func DefaultCalendar() *Calendar {
	out := make([]Session, len(sessions))
	copy(out, sessions)
	return &Calendar{Sessions: out}
}

// Lookup accepts the exchange code, NASDAQ as an alias of NYSE
func (c *Calendar) Lookup(code string) (Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "NASDAQ" || code == "US" {
		code = "NYSE"
	}
	for _, s := range c.Sessions {
		if s.Code == code {
			return s, nil
		}
	}
	return Session{}, fmt.Errorf("unknown exchange %q", code)
}

func (s Session) Local(t time.Time) time.Time { return t.In(s.loc) }

// IsOpen reports whether t falls in a weekday session. Holidays are not modeled.
func (s Session) IsOpen(t time.Time) bool {
	lt := s.Local(t)
	if lt.Weekday() == time.Saturday || lt.Weekday() == time.Sunday {
		return false
	}
	m := lt.Hour()*60 + lt.Minute()
	if m == s.Close.minutes() {
		return lt.Second() == 0 && lt.Nanosecond() == 0
	}
	return m >= s.Open.minutes() && m < s.Close.minutes()
}

// NextOpen is the start of the next session at or after t
func (s Session) NextOpen(t time.Time) time.Time {
	if s.IsOpen(t) {
		return t
	}
	lt := s.Local(t)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), s.Open.Hour, s.Open.Minute, 0, 0, s.loc)
	for i := 0; i < 8; i++ {
		cand := day.AddDate(0, 0, i)
		if cand.Weekday() == time.Saturday || cand.Weekday() == time.Sunday {
			continue
		}
		if !cand.Before(lt) {
			return cand
		}
	}
	return day.AddDate(0, 0, 7)
}

func (s Session) Hours() string { return s.Open.String() + "-" + s.Close.String() }

// Status is an open exchange at a point in time
type Status struct {
	Session   Session
	LocalTime time.Time
}

func (st Status) String() string {
	return fmt.Sprintf("%s | Local Time: %s | Hours: %s", st.Session.Name, st.LocalTime.Format("15:04"), st.Session.Hours())
}

// OpenAt lists the exchanges open at t in calendar order
func (c *Calendar) OpenAt(t time.Time) []Status {
	var out []Status
	for _, s := range c.Sessions {
		if s.IsOpen(t) {
			out = append(out, Status{Session: s, LocalTime: s.Local(t)})
		}
	}
	return out
}

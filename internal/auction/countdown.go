package auction

import (
	"fmt"
	"time"
)

// Countdown is the time left until an auction closes.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Ended   bool `json:"ended"`
}

// CountdownTo breaks end-now into components, truncated to whole seconds.
func CountdownTo(end, now time.Time) Countdown {
	left := end.Sub(now)
	if left <= 0 {
		return Countdown{Ended: true}
	}
	secs := int(left / time.Second)
	return Countdown{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
}

func (c Countdown) String() string {
	switch {
	case c.Ended:
		return "ended"
	case c.Days > 0:
		return fmt.Sprintf("%dd %02dh %02dm", c.Days, c.Hours, c.Minutes)
	case c.Hours > 0:
		return fmt.Sprintf("%02dh %02dm %02ds", c.Hours, c.Minutes, c.Seconds)
	default:
		return fmt.Sprintf("%02dm %02ds", c.Minutes, c.Seconds)
	}
}

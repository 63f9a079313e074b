package handlers

import (
	"fmt"
	"math"
	"time"
)

// timeAgo describes the distance between now and t in words, for example
// "3 minutes ago" or "about 2 hours ago".
func timeAgo(now, t time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	words := distance(d)
	if future {
		return "in " + words
	}
	return words + " ago"
}

func distance(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	const (
		day   = 24 * 60
		month = 30 * day
		year  = 365 * day
	)

	switch {
	case d < 30*time.Second:
		return "less than a minute"
	case minutes < 2:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < day:
		return fmt.Sprintf("about %d hours", int(math.Round(float64(minutes)/60)))
	case minutes < 42*60:
		return "1 day"
	case minutes < month:
		return fmt.Sprintf("%d days", int(math.Round(float64(minutes)/day)))
	case minutes < 45*day:
		return "about 1 month"
	case minutes < 60*day:
		return "about 2 months"
	case minutes < year:
		return fmt.Sprintf("%d months", int(math.Round(float64(minutes)/month)))
	default:
		years := minutes / year
		if years == 1 {
			return "about 1 year"
		}
		return fmt.Sprintf("about %d years", years)
	}
}

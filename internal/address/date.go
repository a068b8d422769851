package address

import (
	"fmt"
	"time"
)

// DateLayout is the shape of the "Platí Od" cell.
const DateLayout = "2006-01-02"

// ParseDate turns a date-only cell (YYYY-MM-DD) into midnight UTC. The cell
// gets a synthetic time and zone suffix and is parsed as an RFC 3339 instant,
// so anything other than exactly ten characters of that shape fails.
func ParseDate(s string) (time.Time, error) {
	if !isDateShape(s) {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(time.RFC3339, s+"T00:00:00Z")
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func isDateShape(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

package market

import (
	"fmt"
	"strings"
)

// Direction is the side of a closed position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ParseDirection accepts LONG/SHORT and the BUY/SELL spelling used on
// order tickets, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Sign is +1 for long and -1 for short positions.
func (d Direction) Sign() int {
	if d == Short {
		return -1
	}
	return 1
}

func (d Direction) String() string {
	return string(d)
}

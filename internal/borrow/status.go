package borrow

import (
	"fmt"
	"strings"
)

type Status uint8

const (
	StatusPending Status = iota
	StatusBorrowed
	StatusReturned
)

var statusNames = [...]string{"pending", "borrowed", "returned"}

func (s Status) Valid() bool { return int(s) < len(statusNames) }

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Active reports whether the borrow still holds its copy.
func (s Status) Active() bool { return s == StatusPending || s == StatusBorrowed }

func ParseStatus(v string) (Status, bool) {
	for i, n := range statusNames {
		if strings.EqualFold(v, n) {
			return Status(i), true
		}
	}
	return 0, false
}

// transitions lists the legal successors of each state. Returned is terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusBorrowed, StatusReturned},
	StatusBorrowed: {StatusReturned},
}

func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

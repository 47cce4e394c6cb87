package task

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusClosed:
		return StatusClosed, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition out of s is possible.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

func (s Status) String() string {
	return string(s)
}

type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

func ParseComplexity(s string) (Complexity, error) {
	switch Complexity(strings.ToUpper(strings.TrimSpace(s))) {
	case ComplexityLow:
		return ComplexityLow, nil
	case ComplexityMedium:
		return ComplexityMedium, nil
	case ComplexityHigh:
		return ComplexityHigh, nil
	}
	return "", fmt.Errorf("unknown complexity %q", s)
}

func (c Complexity) Valid() bool {
	return c.Severity() > 0
}

// Severity orders complexities LOW < MEDIUM < HIGH. Unknown values rank 0.
func (c Complexity) Severity() int {
	switch c {
	case ComplexityLow:
		return 1
	case ComplexityMedium:
		return 2
	case ComplexityHigh:
		return 3
	}
	return 0
}

func (c Complexity) String() string {
	return string(c)
}

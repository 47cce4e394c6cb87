package lifecycle

import "fmt"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidState:
		return "invalid_state"
	}
	return "unknown"
}

// RuleError is a rejected lifecycle operation.
type RuleError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *RuleError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func validation(field, message string) *RuleError {
	return &RuleError{Kind: KindValidation, Field: field, Message: message}
}

func invalidState(message string) *RuleError {
	return &RuleError{Kind: KindInvalidState, Message: message}
}

package robot

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures raised by this package
type ErrorType int

const (
	// ErrorTypeValidation is an argument the robot would reject
	ErrorTypeValidation ErrorType = iota

	// ErrorTypeParse is a response payload that does not decode
	ErrorTypeParse
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "ValidationError"
	case ErrorTypeParse:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// RobotError is a validation or parse failure
type RobotError struct {
	Type    ErrorType
	Message string
}

func (e *RobotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *RobotError {
	return &RobotError{Type: ErrorTypeValidation, Message: message}
}

// NewParseError creates a parse error
func NewParseError(message string) *RobotError {
	return &RobotError{Type: ErrorTypeParse, Message: message}
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	var re *RobotError
	return errors.As(err, &re) && re.Type == ErrorTypeValidation
}

// IsParseError reports whether err is a parse error
func IsParseError(err error) bool {
	var re *RobotError
	return errors.As(err, &re) && re.Type == ErrorTypeParse
}

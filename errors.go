package osm

import (
	"errors"
	"fmt"
)

// Error codes. Codes below CodeTransport are local validation failures;
// the rest come out of capability negotiation.
const (
	CodeUnknownOption         = "unknown_option"         // Key outside the option set
	CodeInvalidValue          = "invalid_value"          // Value of the wrong kind for its key
	CodeInvalidLanguage       = "invalid_language"       // Accept-language tag rejected
	CodeUnreadableFile        = "unreadable_file"        // Password file missing, unreadable or empty
	CodeMalformedCredentials  = "malformed_credentials"  // Password file line without a ':' separator
	CodeTransport             = "transport"              // Capabilities fetch failed
	CodeIncompatibleVersion   = "incompatible_version"   // Configured api_version outside server range
	CodeMalformedCapabilities = "malformed_capabilities" // Capabilities document could not be parsed
)

// Sentinel errors for use with errors.Is.
var (
	ErrUnknownOption         = &Error{Code: CodeUnknownOption, Message: "unknown config parameter"}
	ErrInvalidValue          = &Error{Code: CodeInvalidValue, Message: "invalid config value"}
	ErrInvalidLanguage       = &Error{Code: CodeInvalidLanguage, Message: "language invalid"}
	ErrUnreadableFile        = &Error{Code: CodeUnreadableFile, Message: "could not read password file"}
	ErrMalformedCredentials  = &Error{Code: CodeMalformedCredentials, Message: "malformed password file"}
	ErrTransport             = &Error{Code: CodeTransport, Message: "could not get a valid response from server"}
	ErrIncompatibleVersion   = &Error{Code: CodeIncompatibleVersion, Message: "api version not supported"}
	ErrMalformedCapabilities = &Error{Code: CodeMalformedCapabilities, Message: "problem checking server capabilities"}
)

// Error is returned by every operation in this package.
type Error struct {
	Code       string // One of the Code constants
	Message    string // Human-readable message
	Details    string // Offending key, value or URL
	StatusCode int    // HTTP status for transport errors, 0 otherwise
	Err        error  // Underlying cause, if any
}

func (e *Error) Error() string {
	msg := "osm [" + e.Code + "]: " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is implements errors.Is for error comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Local reports whether the error was raised by local validation, as
// opposed to a failed negotiation with the server.
func (e *Error) Local() bool {
	switch e.Code {
	case CodeTransport, CodeIncompatibleVersion, CodeMalformedCapabilities:
		return false
	default:
		return true
	}
}

// IsUnknownOption checks if an error reports a key outside the option set.
func IsUnknownOption(err error) bool {
	return errors.Is(err, ErrUnknownOption)
}

// IsTransport checks if an error reports a failed capabilities fetch.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsIncompatibleVersion checks if the server rejected the configured api_version.
func IsIncompatibleVersion(err error) bool {
	return errors.Is(err, ErrIncompatibleVersion)
}

// IsNegotiation checks if an error came out of capability negotiation.
func IsNegotiation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return !e.Local()
	}
	return false
}

func newError(code, message, details string, cause error) *Error {
	return &Error{Code: code, Message: message, Details: details, Err: cause}
}

func unknownOption(key string) *Error {
	return newError(CodeUnknownOption, ErrUnknownOption.Message, fmt.Sprintf("'%s'", key), nil)
}

func invalidValue(key Key, format string, args ...any) *Error {
	return newError(CodeInvalidValue, ErrInvalidValue.Message, string(key)+": "+fmt.Sprintf(format, args...), nil)
}

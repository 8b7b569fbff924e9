package core

import (
	"fmt"
	"strings"
	"time"
)

// MaxAddressLength bounds event bus addresses
const MaxAddressLength = 255

// MaxRequestTimeout bounds EventBus.Request
const MaxRequestTimeout = 5 * time.Minute

var (
	ErrInvalidAddress  = &Error{Code: "INVALID_ADDRESS", Message: "invalid event bus address"}
	ErrInvalidTimeout  = &Error{Code: "INVALID_TIMEOUT", Message: "request timeout out of range"}
	ErrInvalidBody     = &Error{Code: "INVALID_BODY", Message: "message body cannot be nil"}
	ErrInvalidVerticle = &Error{Code: "INVALID_VERTICLE", Message: "verticle cannot be nil"}
)

// checkAddress accepts dotted names such as "mtp.transactions.status".
// Whitespace and empty segments are rejected.
func checkAddress(address string) error {
	if address == "" || len(address) > MaxAddressLength {
		return ErrInvalidAddress
	}
	if strings.ContainsAny(address, " \t\r\n") {
		return ErrInvalidAddress
	}
	for _, seg := range strings.Split(address, ".") {
		if seg == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

func checkTimeout(timeout time.Duration) error {
	if timeout <= 0 || timeout > MaxRequestTimeout {
		return ErrInvalidTimeout
	}
	return nil
}

// FailFast panics when err is non-nil
func FailFast(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w", err))
	}
}

// FailFastIf panics with message when condition holds
func FailFastIf(condition bool, message string) {
	if condition {
		panic(fmt.Errorf("fail-fast: %s", message))
	}
}

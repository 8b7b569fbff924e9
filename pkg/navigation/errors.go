package navigation

import "github.com/fluxorio/mtp/pkg/core"

// Errors
var (
	ErrInvalidState   = &core.Error{Code: "INVALID_STATE", Message: "state name cannot be empty"}
	ErrDuplicateState = &core.Error{Code: "DUPLICATE_STATE", Message: "state already registered"}
	ErrDuplicateURL   = &core.Error{Code: "DUPLICATE_URL", Message: "url already bound to another state"}
	ErrUnknownParent  = &core.Error{Code: "UNKNOWN_PARENT", Message: "parent state not registered"}
	ErrStateNotFound  = &core.Error{Code: "STATE_NOT_FOUND", Message: "state not found"}
	ErrAbstractState  = &core.Error{Code: "ABSTRACT_STATE", Message: "cannot navigate to an abstract state"}
	ErrForbidden      = &core.Error{Code: "FORBIDDEN", Message: "access to state denied"}
	ErrSessionClosed  = &core.Error{Code: "SESSION_CLOSED", Message: "navigation session is closed"}
)

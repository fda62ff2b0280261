package resource

import "net/http"

type Kind int

const (
	KindValidationFailed Kind = iota + 1
	KindNotFound
	KindBadRequest
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindValidationFailed:
		return "ValidationFailed"
	case KindNotFound:
		return "NotFound"
	case KindBadRequest:
		return "BadRequest"
	case KindServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

func (k Kind) Status() int {
	switch k {
	case KindValidationFailed:
		return http.StatusPreconditionFailed
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the outcome of a failed resource operation. Message is what the
// client sees; Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

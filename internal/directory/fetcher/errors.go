package fetcher

import (
	"errors"
	"fmt"

	"agrimarket/internal/directory/models"
)

// Category is the normalized failure taxonomy for upstream fetches.
type Category string

const (
	// CategoryTransport covers network failures: refused, DNS, timeout.
	CategoryTransport Category = "transport"

	// CategoryAPI covers non-2xx responses and envelopes with success != true.
	CategoryAPI Category = "api"

	// CategoryShape covers bodies that are not the expected envelope.
	CategoryShape Category = "shape"

	// CategoryCanceled means the caller gave up on the request.
	CategoryCanceled Category = "canceled"

	// CategoryInternal is reported for errors that did not come from a fetch.
	CategoryInternal Category = "internal"
)

// ErrUnknownKind is returned for kinds absent from the kind table.
var ErrUnknownKind = errors.New("unknown kind")

// ErrUpstreamDegraded is reported by Health while the API keeps failing.
var ErrUpstreamDegraded = errors.New("marketplace api degraded")

// FetchError wraps upstream failures with a normalized category.
type FetchError struct {
	Category   Category
	Kind       models.Kind
	Status     int // HTTP status when a response was received
	Message    string
	Underlying error
}

func (e *FetchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("fetch %s [%s]: %s: %v", e.Kind, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("fetch %s [%s]: %s", e.Kind, e.Category, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Underlying
}

func newFetchError(category Category, kind models.Kind, status int, message string, underlying error) *FetchError {
	return &FetchError{
		Category:   category,
		Kind:       kind,
		Status:     status,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category from an error.
func CategoryOf(err error) Category {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return CategoryInternal
}

// IsCanceled reports whether err is a fetch abandoned by its caller.
func IsCanceled(err error) bool {
	return CategoryOf(err) == CategoryCanceled
}

// IsNotFound reports whether the upstream answered 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == 404
}

// UserMessage is the inline message shown in place of results.
func UserMessage(err error) string {
	switch CategoryOf(err) {
	case CategoryTransport:
		return "Could not reach the marketplace service. Please try again later."
	case CategoryAPI:
		var fe *FetchError
		if errors.As(err, &fe) && fe.Message != "" && fe.Status == 0 {
			return fe.Message
		}
		return "The marketplace service could not load this page."
	case CategoryShape:
		return "The marketplace service returned an unexpected response."
	case CategoryCanceled:
		return ""
	default:
		return "Something went wrong while loading this page."
	}
}

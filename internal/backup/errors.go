package backup

import "errors"

var (
	ErrSourceNotFound         = errors.New("source not found")
	ErrSourceUnreadable       = errors.New("source unreadable")
	ErrDestinationNotWritable = errors.New("destination not writable")
	ErrIOFailure              = errors.New("i/o failure")
)

// kinder is implemented by errors from other packages that carry a stable kind.
type kinder interface {
	Kind() string
}

// KindOf returns a short, stable name for the error's classification, for logs and
// manifests. Errors carrying their own kind take precedence; unknown errors are
// "io_failure".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrSourceUnreadable):
		return "source_unreadable"
	case errors.Is(err, ErrDestinationNotWritable):
		return "destination_not_writable"
	}
	return "io_failure"
}

package source

import "fmt"

// FetchError reports a request to the recall API that did not produce a
// successful response: the transport failed or the server answered with a
// non-2xx status.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError reports a response or bank file that could not be turned into
// questions or grades.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: malformed data: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

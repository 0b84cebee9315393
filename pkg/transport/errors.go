package transport

import "fmt"

// StatusError reports a response with an HTTP error status. The cache
// propagates it unchanged and never stores the response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http %s error (status %d) for %s", e.Class(), e.StatusCode, e.URL)
}

// Class categorizes the status for logging and metrics.
func (e *StatusError) Class() string {
	switch {
	case e.StatusCode == 429:
		return "rate_limit"
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return "client"
	case e.StatusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

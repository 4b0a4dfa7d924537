package ocr

import "fmt"

// ConfigError reports missing or invalid provider credentials or
// settings. It is always returned before a network call is attempted.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Provider, e.Reason)
}

// ServiceError reports a failure signaled by the remote recognition
// service. These are the retryable errors: the request was well formed
// but the service refused or failed to process it.
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s service error: %s", e.Provider, e.Message)
}

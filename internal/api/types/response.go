package types

import "time"

// envelopeTimeLayout renders timestamps as ISO-8601 with millisecond
// precision.
const envelopeTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the uniform JSON wrapper returned by every API endpoint.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      int    `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse creates a successful API response.
func SuccessResponse(data any) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(envelopeTimeLayout),
	}
}

// ErrorResponse creates a failed API response from an API error.
func ErrorResponse(err *APIError) Envelope {
	return Envelope{
		Success:   false,
		Error:     err.Message,
		Code:      err.Code,
		Timestamp: time.Now().UTC().Format(envelopeTimeLayout),
	}
}

package models

import "time"

// Envelope is the uniform response wrapper for the HTTP control plane.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// Ok wraps a successful payload.
func Ok(data interface{}) Envelope {
	return Envelope{Success: true, Data: data, Error: nil, Timestamp: time.Now().UTC()}
}

// Fail wraps an error message.
func Fail(msg string) Envelope {
	return Envelope{Success: false, Data: nil, Error: &msg, Timestamp: time.Now().UTC()}
}

package models

import "time"

// ClickEvent represents a raw click event intended to be passed through channels.
// This lightweight struct is used for asynchronous processing between goroutines.
type ClickEvent struct {
	ShortCode string    // The short code that was resolved
	Timestamp time.Time // When the click occurred
}

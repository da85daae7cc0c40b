package util

import (
	"time"
)

// Notification is a user facing message with an optional display delay
type Notification struct {
	Message string
	Delay   time.Duration
}

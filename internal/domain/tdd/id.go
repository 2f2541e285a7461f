package tdd

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewRunID generates an identifier for one engine run using ULID
// Format: ULID (e.g., 01JB6X8Y2K9FQR4T3VWHGP5M2C)
func NewRunID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

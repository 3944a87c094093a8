package session

import (
	"fmt"
	"math/rand"
	"time"
)

// NewID generates an opaque identifier correlating one upload attempt
// with the backend. Collision resistance comes from construction only:
// a nanosecond timestamp plus a random suffix. The backend performs no
// uniqueness validation.
func NewID() string {
	return fmt.Sprintf("session_%d_%06d", time.Now().UnixNano(), rand.Intn(1000000))
}

package booking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// numberSuffixBytes is the amount of randomness in a booking number.
// 48 bits keeps collisions negligible for any realistic daily volume.
const numberSuffixBytes = 6

// numberAttempts bounds how often a colliding number is regenerated
// inside one transaction.
const numberAttempts = 5

// NewBookingNumber returns a number of the form PREFIX-YYMMDD-XXXXXXXXXXXX
// where the date is taken from now in UTC and the suffix is random hex.
func NewBookingNumber(prefix string, now time.Time) (string, error) {
	b := make([]byte, numberSuffixBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

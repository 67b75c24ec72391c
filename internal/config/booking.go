package config

import (
	"strings"

	"github.com/iliyamo/tour-booking/internal/booking"
	"github.com/iliyamo/tour-booking/internal/model"
)

// LoadBookingPolicy overlays BOOKING_* variables on booking.DefaultPolicy.
// The result is validated so a bad deployment fails at startup.
func LoadBookingPolicy() (booking.Policy, error) {
	p := booking.DefaultPolicy()
	p.MaxPartySize = envInt("BOOKING_MAX_PARTY_SIZE", p.MaxPartySize)
	p.InitialStatus = model.BookingStatus(strings.ToLower(envStr("BOOKING_INITIAL_STATUS", string(p.InitialStatus))))
	p.CountPending = envBool("BOOKING_COUNT_PENDING", p.CountPending)
	p.NumberPrefix = strings.ToUpper(envStr("BOOKING_NUMBER_PREFIX", p.NumberPrefix))
	p.MaxAttempts = envInt("BOOKING_MAX_ATTEMPTS", p.MaxAttempts)
	p.RetryBackoff = envDur("BOOKING_RETRY_BACKOFF", p.RetryBackoff)
	if err := p.Validate(); err != nil {
		return booking.Policy{}, err
	}
	return p, nil
}

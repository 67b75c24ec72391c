package booking_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/booking"
)

func TestNewBookingNumber_Format(t *testing.T) {
	now := time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	n, err := booking.NewBookingNumber("CT", now)
	require.NoError(t, err)
	assert.Regexp(t, `^CT-260308-[0-9A-F]{12}$`, n)
}

func TestNewBookingNumber_ConcurrentUniqueness(t *testing.T) {
	const workers, perWorker = 20, 500
	now := time.Now()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				n, err := booking.NewBookingNumber("CT", now)
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, n)
			}
			mu.Lock()
			for _, n := range local {
				seen[n] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tour-booking/internal/booking"
)

func TestTranslate(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	lockWait := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"tour missing", ErrTourNotFound, booking.ErrTourNotFound},
		{"booking missing", fmt.Errorf("load: %w", ErrBookingNotFound), booking.ErrBookingNotFound},
		{"deadlock", deadlock, booking.ErrConcurrencyConflict},
		{"wrapped lock wait", fmt.Errorf("exec: %w", lockWait), booking.ErrConcurrencyConflict},
		{"capacity passes through", &booking.CapacityError{Remaining: 2}, booking.ErrCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.in), tt.want)
		})
	}

	assert.NoError(t, translate(nil))
	assert.Same(t, other, errors.Unwrap(fmt.Errorf("x: %w", translate(other))))
}

func TestMySQLErrorClassification(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isDuplicate(errors.New("Error 1062")))
	assert.True(t, isTransient(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isTransient(&mysql.MySQLError{Number: 1062}))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func fastRetries(t *testing.T) {
	t.Helper()
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })
}

func TestWithRetry_Policy(t *testing.T) {
	fastRetries(t)

	connReset := fmt.Errorf("insert: %w", errors.New("read tcp: connection reset by peer"))
	conflict := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	deadlock := &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}

	tests := []struct {
		name      string
		retryable func(error) bool
		err       error
		wantCalls int
	}{
		{name: "insert not repeated after dropped connection", retryable: isTxConflict, err: connReset, wantCalls: 1},
		{name: "insert repeated on serialization failure", retryable: isTxConflict, err: conflict, wantCalls: 4},
		{name: "insert repeated on deadlock", retryable: isTxConflict, err: deadlock, wantCalls: 4},
		{name: "insert not repeated on unique violation", retryable: isTxConflict, err: unique, wantCalls: 1},
		{name: "read repeated after dropped connection", retryable: isReadRetryable, err: connReset, wantCalls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &PostgresRepository{}
			calls := 0

			err := r.withRetry(context.Background(), tt.retryable, func() error {
				calls++
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	fastRetries(t)

	r := &PostgresRepository{}
	calls := 0
	err := r.withRetry(context.Background(), isTxConflict, func() error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

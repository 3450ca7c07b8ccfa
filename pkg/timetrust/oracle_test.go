package timetrust

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paycore/payroll-backend/pkg/logger"
)

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestOracle(query QueryFunc) *Oracle {
	return NewWithQuery([]string{"a.example", "b.example", "c.example"},
		time.Second, query, logger.New("test", "development"))
}

func TestNowFirstSuccessWins(t *testing.T) {
	var queried []string
	oracle := newTestOracle(func(server string, _ time.Duration) (time.Time, error) {
		queried = append(queried, server)
		if server == "b.example" {
			return testTime, nil
		}
		return time.Time{}, errors.New("unreachable")
	})

	resolved := oracle.Now(context.Background())

	assert.Equal(t, testTime, resolved)
	assert.False(t, oracle.UsingLocalTime())
	assert.Equal(t, []string{"a.example", "b.example"}, queried,
		"remaining servers must not be queried after a success")
}

func TestNowAllSourcesFailFallsBackToLocal(t *testing.T) {
	oracle := newTestOracle(func(string, time.Duration) (time.Time, error) {
		return time.Time{}, errors.New("unreachable")
	})

	before := time.Now()
	resolved := oracle.Now(context.Background())

	assert.True(t, oracle.UsingLocalTime())
	assert.WithinDuration(t, before, resolved, 5*time.Second)
}

func TestResetReResolves(t *testing.T) {
	reachable := false
	oracle := newTestOracle(func(string, time.Duration) (time.Time, error) {
		if reachable {
			return testTime, nil
		}
		return time.Time{}, errors.New("unreachable")
	})

	oracle.Now(context.Background())
	assert.True(t, oracle.UsingLocalTime())

	reachable = true
	usingLocal := oracle.Reset(context.Background())

	assert.False(t, usingLocal)
	assert.False(t, oracle.UsingLocalTime())
}

func TestForceLocal(t *testing.T) {
	oracle := newTestOracle(func(string, time.Duration) (time.Time, error) {
		return testTime, nil
	})

	oracle.Now(context.Background())
	assert.False(t, oracle.UsingLocalTime())

	oracle.ForceLocal()
	assert.True(t, oracle.UsingLocalTime())
}

func TestNowStopsOnCancelledContext(t *testing.T) {
	calls := 0
	oracle := newTestOracle(func(string, time.Duration) (time.Time, error) {
		calls++
		return time.Time{}, errors.New("unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle.Now(ctx)

	assert.Zero(t, calls)
	assert.True(t, oracle.UsingLocalTime())
}

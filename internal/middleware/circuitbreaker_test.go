package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

func TestNewCircuitBreaker(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("test", 5, time.Second, WithBreakerLogger(observability.NopLogger()))

	assert.Equal(t, "test", b.Name())
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestSafeIntToUint32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), safeIntToUint32(-1))
	assert.Equal(t, uint32(5), safeIntToUint32(5))
	assert.Equal(t, ^uint32(0), safeIntToUint32(math.MaxInt))
}

func TestCircuitBreaker_Execute(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("execute", 5, time.Second)

	result, err := b.Execute(func() (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	wantErr := errors.New("downstream broke")
	_, err = b.Execute(func() (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestBreaker_PassesSuccess(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("passes", 2, time.Second)
	handler := func(c *dispatch.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	d := newTestDispatcher(handler, Breaker(b))

	for i := 0; i < 5; i++ {
		resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("trips", 2, time.Minute, WithBreakerLogger(observability.NopLogger()))

	handlerRuns := 0
	handler := func(*dispatch.Context) error {
		handlerRuns++
		return errors.New("downstream broke")
	}
	d := newTestDispatcher(handler, Breaker(b))

	// Two failures trip the breaker (threshold 2, failure ratio 1.0).
	for i := 0; i < 2; i++ {
		resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, dispatch.CodeCircuitOpen, decodeEnvelope(t, resp).Error)
	assert.Equal(t, 2, handlerRuns, "open breaker skips the chain")
}

func TestBreaker_ServerStatusCountsAsFailure(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("statuscount", 2, time.Minute, WithBreakerLogger(observability.NopLogger()))

	handler := func(c *dispatch.Context) error {
		c.String(http.StatusBadGateway, "upstream gone")
		return nil
	}
	d := newTestDispatcher(handler, Breaker(b))

	// The handler's own 5xx passes through unchanged while the breaker
	// counts it.
	for i := 0; i < 2; i++ {
		resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "upstream gone", string(resp.Body))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("recovers", 2, 100*time.Millisecond, WithBreakerLogger(observability.NopLogger()))

	fail := true
	handler := func(c *dispatch.Context) error {
		if fail {
			return errors.New("downstream broke")
		}
		c.Status(http.StatusOK)
		return nil
	}
	d := newTestDispatcher(handler, Breaker(b))

	for i := 0; i < 2; i++ {
		d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	fail = false
	time.Sleep(150 * time.Millisecond)

	// Half-open admits probes; two consecutive successes close it.
	for i := 0; i < 2; i++ {
		resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("clienterrs", 2, time.Minute)

	handler := func(c *dispatch.Context) error {
		c.Status(http.StatusNotFound)
		return nil
	}
	d := newTestDispatcher(handler, Breaker(b))

	for i := 0; i < 5; i++ {
		resp := d.Dispatch(context.Background(), testRequest("10.0.0.1:6000"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpenErrorClassification(t *testing.T) {
	t.Parallel()

	err := util.NewCircuitOpenError("uploads", "open")
	assert.ErrorIs(t, err, util.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "uploads")
}

package time

import (
	"context"
	"time"
)

const nowContextKey contextKey = iota

type (
	Clock interface {
		Now(context.Context) time.Time
	}

	// AdjustableClock lets callers pin "now" for a single context.
	AdjustableClock interface {
		Clock
		Set(context.Context, time.Time) context.Context
	}

	ClockFunc func() time.Time

	clockImpl  struct{}
	contextKey int
)

func NewAdjustableClock() AdjustableClock {
	return clockImpl{}
}

func (c clockImpl) Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowContextKey).(time.Time); ok {
		return t
	}

	return time.Now()
}

func (c clockImpl) Set(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowContextKey, t)
}

func (f ClockFunc) Now(context.Context) time.Time {
	return f()
}

// Fixed always reports t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

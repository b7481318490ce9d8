package cli

import (
	"context"
	"time"
)

func contextWithStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, commandContextKey{}, t)
}

func startFromContext(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	t, ok := ctx.Value(commandContextKey{}).(time.Time)
	return t, ok
}

package log

import (
	"context"
	"time"

	"github.com/lxt1045/errors"
	"github.com/lxt1045/errors/zerolog"
)

// 超过该耗时的 DeferLogger 至少是 warn
var slowThreshold = 3 * time.Second

// DeferLogger 在 defer 里记录一次调用的耗时、错误和 recover 的值。
// 没有错误且不慢时是 trace 级别。
func DeferLogger(ctx context.Context, loss int64, err error, recovered interface{}) *zerolog.Event {
	d := time.Duration(loss)
	l := Ctx(ctx)

	var e *zerolog.Event
	switch {
	case err != nil || recovered != nil:
		e = l.Error().Strs("stack", callers(2))
	case d >= slowThreshold:
		e = l.Warn()
	default:
		e = l.Trace()
	}
	if err != nil {
		e = e.Err(err)
	}
	if recovered != nil {
		if re, ok := recovered.(error); ok && err == nil {
			e = e.Err(re)
		} else {
			e = e.Interface("recover", recovered)
		}
	}
	return e.Int64("duration/ms", d.Milliseconds())
}

// callers 跳过 skip 层后的调用栈；goroutine 入口处的栈可能比 skip 还短
func callers(skip int) []string {
	cs := errors.CallersSkip(0)
	if skip > len(cs) {
		skip = len(cs)
	}
	stack := make([]string, 0, len(cs)-skip)
	for _, c := range cs[skip:] {
		stack = append(stack, c.String())
	}
	return stack
}

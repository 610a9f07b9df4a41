package log

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lxt1045/errors"
	"github.com/lxt1045/netsock/config"
	rszlog "github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	l, err := Level("warn")
	assert.NoError(t, err)
	assert.Equal(t, "warn", rszlog.Level(l).String())

	l, err = Level(" ERROR ")
	assert.NoError(t, err)
	assert.Equal(t, "error", rszlog.Level(l).String())

	for _, bad := range []string{"verbose", ""} {
		_, err = Level(bad)
		assert.Error(t, err, bad)
	}
}

func TestWithLogid(t *testing.T) {
	t.Run("logid", func(t *testing.T) {
		ctx, _ := WithLogid(context.Background(), 1045)
		id, ok := Logid(ctx)
		assert.True(t, ok)
		assert.Equal(t, int64(1045), id)
	})

	t.Run("no-logid", func(t *testing.T) {
		_, ok := Logid(context.Background())
		assert.False(t, ok)
		assert.NotNil(t, Ctx(context.Background()))
	})

	t.Run("output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		old := output
		output = buf
		defer func() { output = old }()

		_, l := WithLogid(context.Background(), 7)
		l.Error().Str("op", "bind").Msg("failed")
		assert.Contains(t, buf.String(), `"logid":7`)
		assert.Contains(t, buf.String(), `"op":"bind"`)
	})
}

func TestInit(t *testing.T) {
	old := output
	defer func() { output = old }()

	err := Init(context.Background(), config.Log{
		Filename: filepath.Join(t.TempDir(), "netsock.log"),
		MaxSize:  1,
	})
	assert.NoError(t, err)
	assert.NotEqual(t, old, GetOutput())

	err = Init(context.Background(), config.Log{LogLevel: "verbose"})
	assert.Error(t, err)
}

func TestDeferLogger(t *testing.T) {
	buf := &syncBuffer{}
	old := output
	output = buf
	defer func() { output = old }()

	t.Run("error", func(t *testing.T) {
		buf.Reset()
		ctx, _ := WithLogid(context.Background(), 9)
		DeferLogger(ctx, int64(5*time.Second), errors.Errorf("recv failed"), nil).Msg("echo")
		assert.Contains(t, buf.String(), "recv failed")
		assert.Contains(t, buf.String(), `"duration/ms":5000`)
		assert.Contains(t, buf.String(), `"level":"error"`)
		assert.Contains(t, buf.String(), `"stack":[`)
	})

	t.Run("slow", func(t *testing.T) {
		buf.Reset()
		ctx, _ := WithLogid(context.Background(), 10)
		DeferLogger(ctx, int64(4*time.Second), nil, nil).Msg("echo")
		assert.Contains(t, buf.String(), `"level":"warn"`)
	})

	t.Run("recover", func(t *testing.T) {
		buf.Reset()
		ctx, _ := WithLogid(context.Background(), 11)
		func() {
			defer func() {
				DeferLogger(ctx, 0, nil, recover()).Msg("echo")
			}()
			panic("boom")
		}()
		assert.Contains(t, buf.String(), `"recover":"boom"`)
	})

	// goroutine 入口的调用栈很浅，不能因为跳过的层数越界而 panic
	t.Run("goroutine", func(t *testing.T) {
		buf.Reset()
		ctx, _ := WithLogid(context.Background(), 12)
		done := make(chan struct{})
		go connDone(ctx, done)
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("timeout")
		}
		assert.Contains(t, buf.String(), "connection reset by peer")
	})
}

func connDone(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := errors.Errorf("read: connection reset by peer")
	defer func(t time.Time) {
		e := recover()
		DeferLogger(ctx, int64(time.Since(t)), err, e).Str("peer", "127.0.0.1:12345").Msg("echo done")
	}(time.Now())
}

func TestCallers(t *testing.T) {
	assert.NotEmpty(t, callers(0))
	assert.Empty(t, callers(1<<20))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

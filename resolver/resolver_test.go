package resolver

import (
	"bytes"
	"context"
	"net/netip"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/allegro/bigcache/v3"
	"github.com/benbjohnson/clock"
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
	"github.com/lxt1045/netsock/log"
	"github.com/lxt1045/netsock/sockerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedClock struct {
	*clock.Mock
}

func (mc *mockedClock) Epoch() int64 {
	return mc.Now().Unix()
}

func mockClock(bc *bigcache.BigCache, mc *mockedClock) {
	shards := reflect.ValueOf(bc).Elem().FieldByName("shards")
	for i := 0; i < shards.Len(); i++ {
		clockField := shards.Index(i).Elem().FieldByName("clock")
		clockField = reflect.NewAt(clockField.Type(), unsafe.Pointer(clockField.UnsafeAddr())).Elem()
		clockField.Set(reflect.ValueOf(mc))
	}
}

type syncBuffer struct {
	sync.Mutex
	bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.Buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.Buffer.String()
}

const TTL = 10 * time.Minute

func newTestResolver(t *testing.T, lookup LookupFunc) (*Resolver, *clock.Mock) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r, err := New(ctx, config.Resolver{TTL: TTL, Shards: 4}, WithLookup(lookup))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	mc := clock.NewMock()
	mc.Add(time.Hour)
	old := SetClock(mc)
	t.Cleanup(func() { SetClock(old) })
	mockClock(r.cache, &mockedClock{mc})
	return r, mc
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	var calls int64
	lookup := func(ctx context.Context, family addr.Family, host string) (netip.Addr, error) {
		atomic.AddInt64(&calls, 1)
		switch {
		case host == "no-such-host":
			return netip.Addr{}, &sockerr.Error{Op: "resolve", Code: sockerr.EAINoName}
		case family == addr.FamilyInet6:
			return netip.IPv6Loopback(), nil
		}
		return netip.MustParseAddr("10.0.0.1"), nil
	}
	r, mc := newTestResolver(t, lookup)

	t.Run("literal", func(t *testing.T) {
		a, err := r.Resolve(ctx, addr.FamilyInet, "127.0.0.1", 80)
		require.NoError(t, err)
		assert.Equal(t, addr.Loopback(80), a)
		assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("cached", func(t *testing.T) {
		a, err := r.Resolve(ctx, addr.FamilyInet, "svc.local", 80)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:80", a.String())

		b, err := r.Resolve(ctx, addr.FamilyInet, "SVC.local", 8080)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:8080", b.String())
		assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("family", func(t *testing.T) {
		a, err := r.Resolve(ctx, addr.FamilyInet6, "svc.local", 443)
		require.NoError(t, err)
		assert.Equal(t, addr.Loopback6(443), a)
		assert.Equal(t, int64(2), atomic.LoadInt64(&calls))

		_, err = r.Resolve(ctx, addr.FamilyUnspec, "svc.local", 443)
		assert.Equal(t, sockerr.EAFNOSUPPORT, sockerr.Code(err))
	})

	t.Run("error", func(t *testing.T) {
		n := r.Len()
		a, err := r.Resolve(ctx, addr.FamilyInet, "no-such-host", 80)
		assert.False(t, a.IsValid())
		assert.Equal(t, sockerr.EAINoName, sockerr.Code(err))
		assert.Equal(t, n, r.Len())
	})

	t.Run("expired", func(t *testing.T) {
		before := atomic.LoadInt64(&calls)
		mc.Add(TTL + time.Second)

		a, err := r.Resolve(ctx, addr.FamilyInet, "svc.local", 80)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:80", a.String())
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&calls) == before+1
		}, time.Second, time.Millisecond)
	})

	t.Run("forget", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			_, refreshing := r.expires.Load(cacheKey(addr.FamilyInet, "svc.local"))
			return !refreshing
		}, time.Second, time.Millisecond)
		before := atomic.LoadInt64(&calls)

		r.Forget("svc.local")
		_, err := r.Resolve(ctx, addr.FamilyInet, "svc.local", 80)
		require.NoError(t, err)
		assert.Equal(t, before+1, atomic.LoadInt64(&calls))
	})
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), config.Resolver{Shards: 3})
	assert.Error(t, err)

	r, err := New(context.Background(), config.Resolver{})
	require.NoError(t, err)
	defer r.Close()

	a, err := r.Resolve(context.Background(), addr.FamilyInet, "localhost", 53)
	require.NoError(t, err)
	assert.Equal(t, addr.Loopback(53), a)
	assert.Equal(t, 1, r.Len())
}

func TestEmitStats(t *testing.T) {
	r, mc := newTestResolver(t, func(ctx context.Context, family addr.Family, host string) (netip.Addr, error) {
		return netip.MustParseAddr("10.0.0.2"), nil
	})
	_, err := r.Resolve(context.Background(), addr.FamilyInet, "svc.local", 80)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	buf := &syncBuffer{}
	go r.EmitStats(ctx, log.New(buf), time.Minute)

	assert.Eventually(t, func() bool {
		mc.Add(time.Minute)
		return strings.Contains(buf.String(), `"cache.len":1`)
	}, time.Second, 10*time.Millisecond)
}

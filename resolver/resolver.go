package resolver

import (
	"context"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
	"github.com/lxt1045/errors"
	"github.com/lxt1045/errors/zerolog"
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
	"github.com/lxt1045/netsock/log"
	"golang.org/x/sync/singleflight"
)

// LookupFunc 解析 host 得到一个 IP，port 由调用方补上
type LookupFunc func(ctx context.Context, family addr.Family, host string) (netip.Addr, error)

type Option func(*Resolver)

// WithLookup 替换默认的系统解析
func WithLookup(lookup LookupFunc) Option {
	return func(r *Resolver) {
		r.lookup = lookup
	}
}

// Resolver 缓存域名解析结果。过期(超过 TTL)但还没被清理的条目照常返回，
// 同时在后台刷新；IP 字面量不进缓存。
type Resolver struct {
	cache   *bigcache.BigCache
	lookup  LookupFunc
	flight  singleflight.Group
	expires sync.Map
}

type xxHash struct{}

func (*xxHash) Sum64(s string) uint64 {
	return xxhash.Sum64String(s)
}

func New(ctx context.Context, conf config.Resolver, opts ...Option) (*Resolver, error) {
	c := bigcache.Config{
		Shards:             conf.Shards,
		LifeWindow:         conf.TTL,
		CleanWindow:        conf.TTL * 2,
		MaxEntriesInWindow: conf.MaxEntries,
		MaxEntrySize:       32, // 16 字节 IP + zone
		HardMaxCacheSize:   conf.MaxSize,
		Hasher:             &xxHash{},
		Logger:             log.Ctx(ctx),
	}
	if c.Shards == 0 {
		c.Shards = 64
	}
	if c.LifeWindow == 0 {
		c.LifeWindow = 5 * time.Minute
		c.CleanWindow = c.LifeWindow * 2
	}
	if c.MaxEntriesInWindow == 0 {
		c.MaxEntriesInWindow = 1024
	}
	if c.HardMaxCacheSize == 0 {
		c.HardMaxCacheSize = 8 // MB
	}

	bc, err := bigcache.New(ctx, c)
	if err != nil {
		err = errors.Errorf(err.Error())
		log.Ctx(ctx).Error().Caller().Err(err).Msgf("fail to init resolver cache: %+v", conf)
		return nil, err
	}
	r := &Resolver{
		cache:  bc,
		lookup: lookupSystem,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func lookupSystem(ctx context.Context, family addr.Family, host string) (netip.Addr, error) {
	a, err := addr.Resolve(ctx, family, host, 0)
	if err != nil {
		return netip.Addr{}, err
	}
	return a.Addr(), nil
}

func cacheKey(family addr.Family, host string) string {
	return family.String() + "|" + strings.ToLower(host)
}

// Resolve 与 addr.Resolve 语义相同，名字解析的结果会被缓存
func (r *Resolver) Resolve(ctx context.Context, family addr.Family, host string, port uint16) (addr.Address, error) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if _, err := netip.ParseAddr(host); err == nil || host == "" {
		return addr.Resolve(ctx, family, host, port)
	}
	if family != addr.FamilyInet && family != addr.FamilyInet6 {
		return addr.Resolve(ctx, family, host, port)
	}

	key := cacheKey(family, host)
	data, info, err := r.cache.GetWithInfo(key)
	if err == nil {
		var ip netip.Addr
		if ip.UnmarshalBinary(data) == nil {
			if info.EntryStatus == bigcache.Expired {
				if _, loaded := r.expires.LoadOrStore(key, true); !loaded {
					go func() {
						defer r.expires.Delete(key)
						_, err := r.load(context.WithoutCancel(ctx), key, family, host)
						if err != nil {
							log.Ctx(ctx).Warn().Caller().Err(err).Str("host", host).Msg("refresh failed")
						}
					}()
				}
			}
			return addr.Resolve(ctx, family, ip.String(), port)
		}
		_ = r.cache.Delete(key)
	}

	ip, err := r.load(ctx, key, family, host)
	if err != nil {
		return addr.Address{}, err
	}
	return addr.Resolve(ctx, family, ip.String(), port)
}

func (r *Resolver) load(ctx context.Context, key string, family addr.Family, host string) (netip.Addr, error) {
	defer r.flight.Forget(key)
	v, err, _ := r.flight.Do(key, func() (interface{}, error) {
		ip, err := r.lookup(ctx, family, host)
		if err != nil {
			return nil, err
		}
		data, err := ip.MarshalBinary()
		if err != nil {
			return nil, errors.Errorf(err.Error())
		}
		_ = r.cache.Set(key, data)
		return ip, nil
	})
	if err != nil {
		return netip.Addr{}, err
	}
	return v.(netip.Addr), nil
}

// Forget 删除 host 在所有地址族下的缓存
func (r *Resolver) Forget(hosts ...string) {
	for _, host := range hosts {
		for _, f := range []addr.Family{addr.FamilyInet, addr.FamilyInet6} {
			_ = r.cache.Delete(cacheKey(f, host))
		}
	}
}

func (r *Resolver) Len() int {
	return r.cache.Len()
}

func (r *Resolver) Close() error {
	return r.cache.Close()
}

// EmitStats 每隔 interval 打印一次命中统计，直到 ctx 结束
func (r *Resolver) EmitStats(ctx context.Context, logger *zerolog.Logger, interval time.Duration) {
	ticker := sysClock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := r.cache.Stats()
			logger.Info().
				Int("cache.hits", int(stat.Hits)).
				Int("cache.misses", int(stat.Misses)).
				Int("cache.delHits", int(stat.DelHits)).
				Int("cache.delMisses", int(stat.DelMisses)).
				Int("cache.collisions", int(stat.Collisions)).
				Int("cache.len", r.cache.Len()).
				Msg("resolver")
		}
	}
}

package main

import (
	"context"
	"embed"
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lxt1045/errors"
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
	"github.com/lxt1045/netsock/log"
	"github.com/lxt1045/netsock/resolver"
	"github.com/lxt1045/netsock/socket"
	"golang.org/x/sync/errgroup"
)

//go:embed static
var static embed.FS

type Config struct {
	Log      config.Log
	Resolver config.Resolver
	Echo     config.Socket
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, _ = log.WithLogid(ctx, time.Now().UnixNano())

	confFile := flag.String("conf", "", "yaml config file, default: embedded static/conf/default.yml")
	flag.Parse()

	// 解析配置文件
	conf := &Config{}
	var err error
	if *confFile != "" {
		err = config.Load(*confFile, conf)
	} else {
		err = config.UnmarshalFS("static/conf/default.yml", static, conf)
	}
	if err != nil {
		log.Ctx(ctx).Fatal().Caller().Err(err).Send()
		return
	}
	err = log.Init(ctx, conf.Log)
	if err != nil {
		log.Ctx(ctx).Fatal().Caller().Err(err).Send()
		return
	}

	rs, err := resolver.New(ctx, conf.Resolver)
	if err != nil {
		log.Ctx(ctx).Fatal().Caller().Err(err).Send()
		return
	}
	defer rs.Close()

	local, err := localAddr(ctx, rs, conf.Echo)
	if err != nil {
		log.Ctx(ctx).Fatal().Caller().Err(err).Str("addr", conf.Echo.Addr).Send()
		return
	}

	var listener interface {
		Shutdown(how int) error
		LastError() int
	}
	g, gctx := errgroup.WithContext(ctx)
	switch conf.Echo.Network {
	case "udp", "unixgram":
		s, err := socket.BindDatagram(local, conf.Echo)
		if err != nil {
			log.Ctx(ctx).Fatal().Caller().Err(err).Int("code", s.LastError()).Send()
			return
		}
		defer s.Close()
		listener = s
		g.Go(func() error { return serveDatagram(gctx, s) })
	case "tcp", "unix":
		ac, err := socket.Listen(local, conf.Echo.Backlog, conf.Echo)
		if err != nil {
			log.Ctx(ctx).Fatal().Caller().Err(err).Int("code", ac.LastError()).Send()
			return
		}
		defer ac.Close()
		listener = ac
		g.Go(func() error { return serveStream(gctx, ac) })
	default:
		log.Ctx(ctx).Fatal().Caller().Str("network", conf.Echo.Network).Msg("unknown network")
		return
	}
	log.Ctx(ctx).Info().Caller().Str("network", conf.Echo.Network).Str("local", local.String()).Msg("echo started")

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-ch:
			log.Ctx(ctx).Info().Caller().Str("signal", sig.String()).Send()
		case <-gctx.Done():
		}
		cancel()
		// 阻塞中的 accept/recvfrom 随之返回
		if err := listener.Shutdown(socket.SHUT_RDWR); err != nil {
			log.Ctx(ctx).Debug().Caller().Err(err).Int("code", listener.LastError()).Msg("shutdown listener")
		}
	}()

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		log.Ctx(ctx).Error().Caller().Err(err).Send()
	}
}

// localAddr 支持 unix:path、IP 字面量和域名，Interface 非空时使用网卡地址
func localAddr(ctx context.Context, rs *resolver.Resolver, conf config.Socket) (a addr.Address, err error) {
	if strings.HasPrefix(conf.Addr, "unix:") {
		return addr.Parse(conf.Addr)
	}
	host, portStr, err := net.SplitHostPort(conf.Addr)
	if err != nil {
		err = errors.Errorf(err.Error())
		return
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		err = errors.Errorf(err.Error())
		return
	}
	if conf.Interface != "" {
		return addr.Interface(conf.Interface, uint16(port))
	}
	family := addr.FamilyInet
	if strings.Contains(host, ":") {
		family = addr.FamilyInet6
	}
	return rs.Resolve(ctx, family, host, uint16(port))
}

func serveDatagram(ctx context.Context, s *socket.DatagramSocket) error {
	buf := make([]byte, 64*1024)
	for ctx.Err() == nil {
		n, from, err := s.RecvFrom(buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Ctx(ctx).Warn().Caller().Err(err).Int("code", s.LastError()).Send()
			continue
		}
		_, err = s.SendTo(buf[:n], from)
		if err != nil {
			log.Ctx(ctx).Warn().Caller().Err(err).Str("from", from.String()).Send()
		}
	}
	return nil
}

// serveStream 每个连接一个 goroutine，退出时不等待未结束的连接
func serveStream(ctx context.Context, ac *socket.Acceptor) error {
	for ctx.Err() == nil {
		conn, peer, err := ac.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Errorf(err.Error())
		}
		go echo(ctx, conn, peer)
	}
	return nil
}

func echo(ctx context.Context, conn *socket.StreamSocket, peer addr.Address) {
	var err error
	defer func(t time.Time) {
		e := recover()
		log.DeferLogger(ctx, int64(time.Since(t)), err, e).Str("peer", peer.String()).Msg("echo done")
	}(time.Now())
	defer conn.Close()

	buf := make([]byte, 32*1024)
	for {
		var n int
		n, err = conn.Read(buf)
		if n > 0 {
			if _, werr := conn.WriteAll(buf[:n]); werr != nil {
				err = werr
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}
	}
}

package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/lxt1045/errors"
	"github.com/lxt1045/errors/zerolog"
	"github.com/lxt1045/netsock/config"
	"github.com/natefinch/lumberjack"
	rszlog "github.com/rs/zerolog"
)

var (
	output io.Writer = os.Stdout

	// 没有 logid 的 ctx 使用自增 id
	lastLogid int64
)

type logID struct{}

func GetOutput() io.Writer {
	return output
}

// Init 按 conf 切换输出和全局 level，Filename 为空时保持 stdout
func Init(ctx context.Context, conf config.Log) error {
	if conf.Filename != "" {
		output = fileOutput(conf)
	}
	if conf.LogLevel == "" {
		return nil
	}
	l, err := Level(conf.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

func fileOutput(conf config.Log) io.Writer {
	w := &lumberjack.Logger{
		Filename:   conf.Filename,
		MaxSize:    conf.MaxSize, // MB
		MaxAge:     conf.MaxAge,
		MaxBackups: conf.MaxBackups,
		Compress:   conf.Compress,
		LocalTime:  conf.LocalTime,
	}
	if !conf.ToConsole {
		return w
	}
	return rszlog.MultiLevelWriter(os.Stdout, w)
}

func New(writer ...io.Writer) *zerolog.Logger {
	w := output
	if len(writer) > 0 && writer[0] != nil {
		w = writer[0]
	}
	l := zerolog.New(w)
	return &l
}

// Level 解析 trace/debug/info/warn/error/fatal/panic/disabled
func Level(s string) (zerolog.Level, error) {
	l, err := rszlog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.Level(rszlog.DebugLevel), errors.Errorf("unknown log level: %q", s)
	}
	return zerolog.Level(l), nil
}

// Ctx 返回 ctx 上的 logger，ctx 没有 logid 时临时分配一个
func Ctx(ctx context.Context) *zerolog.Logger {
	if _, ok := Logid(ctx); ok {
		return zerolog.Ctx(ctx)
	}
	_, l := WithLogid(ctx, atomic.AddInt64(&lastLogid, 1))
	return l
}

func Logid(ctx context.Context) (logid int64, ok bool) {
	logid, ok = ctx.Value(logID{}).(int64)
	return
}

func WithLogid(ctx context.Context, logid int64) (context.Context, *zerolog.Logger) {
	ctx = context.WithValue(ctx, logID{}, logid)
	l := zerolog.New(output).Hook(logidHook(logid))
	return l.Logger.WithContext(ctx), &l
}

// logidHook 每条日志带上时间和 logid
type logidHook int64

func (h logidHook) Run(e *rszlog.Event, _ rszlog.Level, _ string) {
	e.Timestamp().Int64("logid", int64(h))
}

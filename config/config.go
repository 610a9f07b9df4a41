package config

import (
	"embed"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lxt1045/errors"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Bytes 字节数，yaml 中可以写 256K、1M、2GB 这样的字符串
type Bytes int64

// Socket 单个 socket 的配置，对应 yaml 中的 socket 段
type Socket struct {
	Network string // udp / tcp / unix
	Addr    string // host:port 或 unix:path
	// 非空时绑定到该网卡的地址，忽略 Addr 中的 host
	Interface string
	Backlog   int

	ReuseAddr   bool
	ReusePort   bool
	Broadcast   bool
	NonBlocking bool

	// 0 表示使用系统默认值
	RecvBuffer Bytes
	SendBuffer Bytes

	// 例如 500ms、3s，0 表示不超时
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Resolver 域名解析缓存
type Resolver struct {
	TTL        time.Duration // 默认 5m，过期后先返回旧值再后台刷新
	Shards     int           // 必须是 2 的幂，默认 64
	MaxEntries int
	MaxSize    int // MB，默认 8
}

type Log struct {
	StoreLevel string // 写到存储的 level
	LogLevel   string
	ToConsole  bool

	// 以下是 lumberjack 配置

	// 日志大小到达MaxSize(MB)就开始backup，默认值是100.
	MaxSize int
	// 旧日志保存的最大天数，默认保存所有旧日志文件
	MaxAge int
	// 旧日志保存的最大数量，默认保存所有旧日志文件
	MaxBackups int
	// 对backup的日志是否进行压缩，默认不压缩
	Compress bool
	// 是否使用本地时间，否则使用UTC时间
	LocalTime bool
	// 日志文件名，为空时只输出到 stdout
	Filename string
}

func UnmarshalFS(file string, fsStatic embed.FS, conf interface{}) (err error) {
	bs, err := fs.ReadFile(fsStatic, file)
	if err != nil {
		return errors.Errorf(err.Error())
	}
	return Unmarshal(bs, conf)
}

// Load 读取 yaml 文件到 conf
func Load(file string, conf interface{}) (err error) {
	bs, err := os.ReadFile(file)
	if err != nil {
		return errors.Errorf(err.Error())
	}
	return Unmarshal(bs, conf)
}

// Unmarshal yaml 先解析成 map，再由 mapstructure 填充 conf：
// 字符串值先展开 ${ENV}，再按目标类型转成 time.Duration 或 Bytes
func Unmarshal(bs []byte, conf interface{}) (err error) {
	m := make(map[string]interface{})
	err = yaml.Unmarshal(bs, m)
	if err != nil {
		return errors.Errorf(err.Error())
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           conf,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			expandEnvHook,
			mapstructure.StringToTimeDurationHookFunc(),
			stringToBytesHook,
		),
		MatchName: MatchName,
	})
	if err != nil {
		return errors.Errorf(err.Error())
	}
	err = decoder.Decode(m)
	if err != nil {
		return errors.Errorf(err.Error())
	}
	return
}

// MatchName yaml 的 key 忽略大小写以及 '-'、'_' 后与字段名比较，
// read-timeout、read_timeout、ReadTimeout 都对应 ReadTimeout
func MatchName(key, field string) bool {
	return strings.EqualFold(normalizeKey(key), field)
}

func normalizeKey(key string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(key)
}

// ExpandEnv 展开 ${VAR} 和 ${VAR}|default；VAR 未设置或为空时取 default。
// 不是这种格式的值原样返回，ok 为 false
func ExpandEnv(v string) (out string, ok bool) {
	s := strings.TrimSpace(v)
	if !strings.HasPrefix(s, "${") {
		return v, false
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return v, false
	}
	if env := os.Getenv(s[2:end]); env != "" {
		return env, true
	}
	def := strings.TrimSpace(s[end+1:])
	def = strings.TrimSpace(strings.TrimPrefix(def, "|"))
	return def, true
}

func expandEnvHook(from, _ reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	out, _ := ExpandEnv(reflect.ValueOf(data).String())
	return out, nil
}

var bytesType = reflect.TypeOf(Bytes(0))

func stringToBytesHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	return ParseBytes(reflect.ValueOf(data).String())
}

var byteUnits = map[byte]Bytes{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// ParseBytes 解析 128、64k、256KB、1 G 这样的大小，单位是 1024 进制
func ParseBytes(s string) (Bytes, error) {
	str := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")
	unit := Bytes(1)
	if n := len(str); n > 0 {
		if u, ok := byteUnits[str[n-1]]; ok {
			unit, str = u, strings.TrimSpace(str[:n-1])
		}
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid byte size %q", s)
	}
	return Bytes(n) * unit, nil
}

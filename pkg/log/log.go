// Package log 提供基于 zerolog 的全局日志.
//
// 输出到 stderr（console 或 json 格式），启用文件时额外写入 lumberjack 轮转文件.
// 后台工作者通过 Component 取得带 component 字段的子日志.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/advstorage/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once

	// componentLevels 只在 Init/New 中写入
	componentLevels map[string]zerolog.Level
)

// Init 按全局配置初始化 logger，只生效一次.
func Init() {
	initOnce.Do(func() {
		cfg := configs.GetConfig()
		logger = New(cfg.Log, cfg.Server.Debug)
		log.Logger = logger
	})
}

// New 按配置构建 logger.
//
// 全局级别取基础级别与各组件级别中最低的一个，基础 logger 自身再用 Level 收紧，
// 这样组件既可以比全局更安静，也可以更详细.
func New(cfg configs.LogConfig, debug bool) zerolog.Logger {
	lvl := parseLevel(cfg.Level, zerolog.InfoLevel)

	levels := make(map[string]zerolog.Level, len(cfg.Components))
	lowest := lvl

	for name, raw := range cfg.Components {
		l := parseLevel(raw, lvl)
		levels[name] = l
		lowest = min(lowest, l)
	}

	componentLevels = levels

	zerolog.SetGlobalLevel(lowest)

	ctx := zerolog.New(writer(cfg)).With().Timestamp()
	if debug {
		ctx = ctx.Caller()
	}

	return ctx.Logger().Level(lvl)
}

func parseLevel(s string, fallback zerolog.Level) zerolog.Level {
	if s == "" {
		return fallback
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, using %s\n", s, fallback)
		return fallback
	}

	return lvl
}

func writer(cfg configs.LogConfig) io.Writer {
	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.DateTime
		})
	}

	if !cfg.EnableFile {
		return out
	}

	// 文件始终写 JSON，方便采集
	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return zerolog.MultiLevelWriter(out, file)
}

// Logger 返回全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	Init()

	return &logger
}

// Component 返回全局 logger 的组件子 logger.
func Component(name string) zerolog.Logger {
	return WithComponent(*Logger(), name)
}

// WithComponent 给 base 加上 component 字段，log.components 中配置了级别时使用该级别.
func WithComponent(base zerolog.Logger, name string) zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	if lvl, ok := componentLevels[name]; ok {
		l = l.Level(lvl)
	}

	return l
}

// GinWriter 把 gin 的文本输出转为 zerolog 事件.
//
// gin 的调试输出带 "[GIN-debug]" 前缀，警告带 "[WARNING]"，这里去掉前缀并按内容选择级别.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		level := w.level

		if rest, ok := strings.CutPrefix(line, "[GIN-debug]"); ok {
			line = strings.TrimSpace(rest)
			level = zerolog.DebugLevel

			if rest, ok := strings.CutPrefix(line, "[WARNING]"); ok {
				line = strings.TrimSpace(rest)
				level = zerolog.WarnLevel
			}
		}

		w.logger.WithLevel(level).Str("source", "gin").Msg(line)
	}

	return len(p), nil
}

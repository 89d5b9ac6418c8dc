package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger 是带组件前缀的 zerolog 包装。
// 控制台格式：时间 [LEVEL] [component] message key=value...
type Logger struct {
	zerolog.Logger
	component string
	cfg       Config
}

// Config 决定输出位置与级别。
type Config struct {
	// Level 为 debug/info/warn/error；为空时按 APP_ENV 推导（production=info，其它=debug）。
	Level string
	// Out 为空时输出到 stderr（stdout 留给汇总行）。
	Out     io.Writer
	NoColor bool
}

var envLevels = map[string]zerolog.Level{
	"development": zerolog.DebugLevel,
	"staging":     zerolog.InfoLevel,
	"production":  zerolog.InfoLevel,
}

// New 使用环境变量推导的默认配置创建组件 logger。
func New(component string) *Logger {
	return NewWithConfig(component, Config{})
}

// NewWithConfig 创建组件 logger。
func NewWithConfig(component string, cfg Config) *Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	noColor := cfg.NoColor
	cw := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05",
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("[%s] %v", component, i)
		},
		FormatLevel: func(i interface{}) string {
			level, ok := i.(string)
			if !ok {
				return "???"
			}
			tag := "[" + strings.ToUpper(level) + "]"
			if noColor {
				return tag
			}
			switch level {
			case "debug":
				return "\033[36m" + tag + "\033[0m"
			case "info":
				return "\033[34m" + tag + "\033[0m"
			case "warn":
				return "\033[33m" + tag + "\033[0m"
			case "error":
				return "\033[31m" + tag + "\033[0m"
			default:
				return tag
			}
		},
	}

	zl := zerolog.New(cw).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return &Logger{Logger: zl, component: component, cfg: cfg}
}

// Nop 返回丢弃全部输出的 logger（测试与未配置日志时使用）。
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop(), component: "nop"}
}

// Component 基于同一配置派生另一个组件的 logger。
func (l *Logger) Component(name string) *Logger {
	if l == nil || l.component == "nop" {
		return Nop()
	}
	return NewWithConfig(name, l.cfg)
}

// ParseLevel 把配置字符串转成 zerolog 级别；未知值回退到 APP_ENV 推导结果。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	if lv, ok := envLevels[os.Getenv("APP_ENV")]; ok {
		return lv
	}
	return zerolog.InfoLevel
}

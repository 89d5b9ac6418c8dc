package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithConfig_ComponentPrefixAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig("worker", Config{Level: "info", Out: &buf, NoColor: true})

	l.Debug().Int("n", 1).Msg("不应输出")
	l.Info().Str("url", "https://example.com/t/1").Msg("抓取完成")

	out := buf.String()
	if strings.Contains(out, "不应输出") {
		t.Fatalf("info 级别下不应输出 debug：%q", out)
	}
	if !strings.Contains(out, "[worker] 抓取完成") {
		t.Fatalf("缺少组件前缀：%q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Fatalf("缺少级别标签：%q", out)
	}
	if !strings.Contains(out, "url=https://example.com/t/1") {
		t.Fatalf("缺少结构化字段：%q", out)
	}
}

func TestComponent_InheritsConfig(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithConfig("main", Config{Level: "warn", Out: &buf, NoColor: true})
	child := root.Component("orchestrator")

	child.Info().Msg("被过滤")
	child.Warn().Msg("保留")

	out := buf.String()
	if strings.Contains(out, "被过滤") {
		t.Fatalf("子 logger 应继承 warn 级别：%q", out)
	}
	if !strings.Contains(out, "[orchestrator] 保留") {
		t.Fatalf("子 logger 前缀不正确：%q", out)
	}
}

func TestNop_Component(t *testing.T) {
	l := Nop().Component("x")
	l.Error().Msg("丢弃")
	if l.GetLevel() != zerolog.Disabled {
		t.Fatalf("Nop 派生的 logger 应保持禁用，实际 %v", l.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v，期望 %v", in, got, want)
		}
	}

	t.Setenv("APP_ENV", "development")
	if got := ParseLevel(""); got != zerolog.DebugLevel {
		t.Fatalf("development 默认应为 debug，实际 %v", got)
	}
}

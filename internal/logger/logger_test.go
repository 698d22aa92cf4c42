package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"unknown": INFO,
	}
	for s, want := range testCases {
		if got := ParseLevel(s); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", s, got, want)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(WARN)

	l.Info("不应输出")
	l.Warn("模板 %s 参数无效", "icon")

	out := buf.String()
	if strings.Contains(out, "不应输出") {
		t.Error("低于级别的日志不应输出")
	}
	if !strings.Contains(out, "WARN  | 模板 icon 参数无效") {
		t.Errorf("日志格式错误: %q", out)
	}
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.LogEvent("tpl", true, 1500*time.Microsecond, "button: 2 个匹配")
	l.LogEvent("tpl", false, time.Millisecond, "icon: 0 个匹配")

	out := buf.String()
	if !strings.Contains(out, "| OK |      1.5ms | button: 2 个匹配") {
		t.Errorf("成功事件格式错误: %q", out)
	}
	if !strings.Contains(out, "WARN  | tpl  | NG |") {
		t.Errorf("失败事件应为 WARN: %q", out)
	}
}

func TestDisabledAndFile(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetEnabled(false)
	l.Error("不应输出")
	if buf.Len() != 0 {
		t.Error("禁用后不应输出")
	}

	l.SetEnabled(true)
	l.SetOutput(nil)
	path := filepath.Join(t.TempDir(), "match.log")
	if err := l.SetFile(true, path); err != nil {
		t.Fatalf("设置日志文件失败: %v", err)
	}
	l.Info("写入文件")
	if err := l.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "写入文件") {
		t.Errorf("文件内容错误: %q", data)
	}
}

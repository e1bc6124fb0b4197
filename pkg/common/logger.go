package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// ParseLevel 解析 LOG_LEVEL, 无法识别时返回 info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// DefaultLogger 默认日志实现
type DefaultLogger struct {
	prefix string
	level  Level
	logger *log.Logger
}

// NewLogger 创建日志器, 级别取自 LOG_LEVEL
func NewLogger(prefix string) Logger {
	return NewLoggerWithOutput(prefix, ParseLevel(os.Getenv("LOG_LEVEL")), os.Stdout)
}

// NewLoggerWithOutput 创建写到指定输出的日志器
func NewLoggerWithOutput(prefix string, level Level, out io.Writer) Logger {
	return &DefaultLogger{
		prefix: prefix,
		level:  level,
		logger: log.New(out, "", log.LstdFlags),
	}
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *DefaultLogger) Fatal(msg string, args ...interface{}) {
	l.logger.Printf("[%s] [FATAL] %s", l.prefix, fmt.Sprintf(msg, args...))
	os.Exit(1)
}

func (l *DefaultLogger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	formatted := fmt.Sprintf(msg, args...)
	l.logger.Printf("[%s] [%s] %s", l.prefix, levelNames[level], formatted)
}

// NopLogger 丢弃所有输出, 测试用
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

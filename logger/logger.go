package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	// Info 正常日志，输出到 stdout
	Info *log.Logger

	// Error 错误日志，输出到 stderr
	Error *log.Logger

	debugEnabled bool
)

func init() {
	Info = log.New(os.Stdout, "", log.LstdFlags)
	Error = log.New(os.Stderr, "", log.LstdFlags)
	debugEnabled = strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
}

// SetOutput 重定向两个输出, 测试用
func SetOutput(stdout, stderr io.Writer) {
	Info.SetOutput(stdout)
	Error.SetOutput(stderr)
}

// SetDebug 打开或关闭 Debugf 输出
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

// Println 输出正常日志到 stdout
func Println(v ...interface{}) {
	Info.Println(v...)
}

// Printf 格式化输出正常日志到 stdout
func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

// Debugf 仅在 LOG_LEVEL=debug 时输出
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Info.Printf(format, v...)
	}
}

// Errorln 输出错误日志到 stderr
func Errorln(v ...interface{}) {
	Error.Println(v...)
}

// Errorf 格式化输出错误日志到 stderr
func Errorf(format string, v ...interface{}) {
	Error.Printf(format, v...)
}

// Fatalf 输出致命错误并退出程序
func Fatalf(format string, v ...interface{}) {
	Error.Fatalf(format, v...)
}

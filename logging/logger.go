package logging

import (
	"fmt"
	"os"
	"sync"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 日志接口
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// writerLogger 把格式化后的日志行写入 io.Writer 的基础实现
type writerLogger struct {
	mu           sync.Mutex
	out          writeSyncer
	formatter    Formatter
	minimumLevel LogLevel
	category     string
	fields       []Field
}

type writeSyncer interface {
	Write(p []byte) (int, error)
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	line := l.formatter.Format(level, l.category, msg, all)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(line); err != nil {
		fmt.Fprintf(os.Stderr, "logging: write failed: %v\n", err)
	}
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	return &writerLogger{
		out:          l.out,
		formatter:    l.formatter,
		minimumLevel: l.minimumLevel,
		category:     l.category,
		fields:       append(append([]Field(nil), l.fields...), fields...),
	}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{
		out:          l.out,
		formatter:    l.formatter,
		minimumLevel: l.minimumLevel,
		category:     category,
		fields:       l.fields,
	}
}

// Discard 丢弃一切输出的日志记录器，容器默认使用它。
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Trace(string, ...Field)           {}
func (discardLogger) Debug(string, ...Field)           {}
func (discardLogger) Info(string, ...Field)            {}
func (discardLogger) Warn(string, ...Field)            {}
func (discardLogger) Error(string, ...Field)           {}
func (discardLogger) Log(LogLevel, string, ...Field)   {}
func (discardLogger) WithFields(...Field) Logger       { return Discard }
func (discardLogger) WithCategory(string) Logger       { return Discard }

package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Formatter 将一条日志记录格式化为输出行（含换行）。
type Formatter interface {
	Format(level LogLevel, category, msg string, fields []Field) []byte
}

// TextFormatter 人类可读的单行文本格式
type TextFormatter struct {
	// IncludeTimestamp 是否包含时间戳
	IncludeTimestamp bool
	// TimestampFormat 时间戳格式，默认 "2006-01-02 15:04:05"
	TimestampFormat string
}

func (f *TextFormatter) Format(level LogLevel, category, msg string, fields []Field) []byte {
	var b strings.Builder

	if f.IncludeTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = "2006-01-02 15:04:05"
		}
		b.WriteString(time.Now().Format(format))
		b.WriteByte(' ')
	}

	b.WriteString(fmt.Sprintf("%-5s", level.String()))
	if category != "" {
		b.WriteString(" [")
		b.WriteString(category)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(msg)

	for _, field := range fields {
		b.WriteByte(' ')
		b.WriteString(field.Key)
		b.WriteByte('=')
		b.WriteString(fmt.Sprintf("%v", field.Value))
	}
	b.WriteByte('\n')

	return []byte(b.String())
}

// JSONFormatter 结构化 JSON 格式
type JSONFormatter struct{}

func (f *JSONFormatter) Format(level LogLevel, category, msg string, fields []Field) []byte {
	entry := map[string]any{
		"time":    time.Now().Format(time.RFC3339),
		"level":   level.String(),
		"message": msg,
	}
	if category != "" {
		entry["category"] = category
	}
	for _, field := range fields {
		// 错误值序列化为字符串，其他值按原样交给 json 包
		if err, ok := field.Value.(error); ok {
			entry[field.Key] = err.Error()
		} else {
			entry[field.Key] = field.Value
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","message":"logging: marshal failed: %v"}`, err))
	}
	return append(data, '\n')
}

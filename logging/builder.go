package logging

import (
	"io"
	"os"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	out          io.Writer
	formatter    Formatter
	minimumLevel LogLevel
	category     string
}

// NewLoggingBuilder 创建日志构建器，默认输出到 stdout、文本格式、Info 级别。
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		out:          os.Stdout,
		formatter:    &TextFormatter{IncludeTimestamp: true},
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.minimumLevel = level
	return b
}

// SetOutput 设置输出目标
func (b *LoggingBuilder) SetOutput(out io.Writer) *LoggingBuilder {
	b.out = out
	return b
}

// UseText 使用文本格式
func (b *LoggingBuilder) UseText() *LoggingBuilder {
	b.formatter = &TextFormatter{IncludeTimestamp: true}
	return b
}

// UseJSON 使用 JSON 格式
func (b *LoggingBuilder) UseJSON() *LoggingBuilder {
	b.formatter = &JSONFormatter{}
	return b
}

// WithCategory 设置默认分类
func (b *LoggingBuilder) WithCategory(category string) *LoggingBuilder {
	b.category = category
	return b
}

// Build 构建 Logger
func (b *LoggingBuilder) Build() Logger {
	return &writerLogger{
		out:          b.out,
		formatter:    b.formatter,
		minimumLevel: b.minimumLevel,
		category:     b.category,
	}
}

package config

import (
	"strings"
	"sync"
)

// segmentCache 缓存键路径的切分结果，":" 和 "." 都作为层级分隔符。
type segmentCache struct {
	segments sync.Map // path -> []string
}

func (c *segmentCache) split(path string) []string {
	if v, ok := c.segments.Load(path); ok {
		return v.([]string)
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	c.segments.Store(path, parts)
	return parts
}

// sharedSegments 各配置实例共享的路径缓存。
var sharedSegments = &segmentCache{}

// Package checksum 基于 xxhash 的内容摘要与 HTTP 实体标签。
package checksum

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Sum 64 位内容摘要
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ETag 强实体标签，形如 "0123456789abcdef"
func ETag(data []byte) string {
	hex := strconv.FormatUint(Sum(data), 16)
	return `"` + strings.Repeat("0", 16-len(hex)) + hex + `"`
}

// Match 判断 If-None-Match 头是否命中 etag。
// 支持逗号分隔的多个标签、"*" 以及弱标签前缀 W/（弱比较）。
func Match(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			return true
		}
	}
	return false
}

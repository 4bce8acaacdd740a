package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestETag(t *testing.T) {
	a := ETag([]byte(`{"userId":"U1"}`))
	assert.Len(t, a, 18)
	assert.Equal(t, a, ETag([]byte(`{"userId":"U1"}`)))
	assert.NotEqual(t, a, ETag([]byte(`{"userId":"U2"}`)))
	assert.Equal(t, `"ef46db3751d8e999"`, ETag(nil))
}

func TestMatch(t *testing.T) {
	etag := `"00ff00ff00ff00ff"`
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"empty", "", false},
		{"exact", etag, true},
		{"weak", "W/" + etag, true},
		{"list", `"aaaa", ` + etag, true},
		{"wildcard", "*", true},
		{"other", `"aaaa"`, false},
		{"unquoted", "00ff00ff00ff00ff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.header, etag))
		})
	}
}

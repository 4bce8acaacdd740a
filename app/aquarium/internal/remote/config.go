package remote

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/pkg/config"
)

// Config 远端玩家服务配置
type Config struct {
	// BaseURL 服务地址，如 http://127.0.0.1:8080
	BaseURL string `mapstructure:"base_url" json:"base_url" validate:"required,url"`

	// Timeout 单次请求超时（默认 5 秒）
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`

	// MaxBodyBytes 响应体读取上限
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" json:"max_body_bytes" validate:"gte=0"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		MaxBodyBytes: 4 << 20,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := config.Validate(c); err != nil {
		return errors.Wrap(err, "remote")
	}
	return nil
}

package sentry

import "github.com/cockroachdb/errors"

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("invalid sentry config")

package config

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Manager 配置管理器接口
type Manager interface {
	// LoadFile 加载配置文件（yaml/json/toml 由扩展名决定）
	LoadFile(path string) error
	// BindEnv 绑定环境变量，prefix=AQUARIUM 时 AQUARIUM_LOG_LEVEL -> log.level
	BindEnv(prefix string)
	// BindFlags 绑定命令行参数，flag 名即配置键（如 --log.level）
	BindFlags(fs *pflag.FlagSet) error
	// SetDefault 设置默认值
	SetDefault(key string, value any)
	// Set 强制覆盖（最高优先级）
	Set(key string, value any)
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置
	UnmarshalKey(key string, v any) error
	// GetString 获取字符串配置
	GetString(key string) string
	// IsSet 检查配置项是否存在
	IsSet(key string) bool
	// ConfigFile 返回已加载的配置文件路径
	ConfigFile() string
	// Watch 监听配置文件变化
	Watch(callback func(fsnotify.Event)) error
}

// manager 配置管理器实现
type manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	file      string
	watching  bool
	callbacks []func(fsnotify.Event)
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrConfigFileNotFound, "path %s", path)
		}
		return errors.Wrapf(err, "stat config file %s", path)
	}

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	m.file = path
	return nil
}

func (m *manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	m.v.AutomaticEnv()
}

func (m *manager) BindFlags(fs *pflag.FlagSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		// viper 只在 flag 被显式设置时才让其覆盖 env/file
		if err := m.v.BindPFlag(f.Name, f); err != nil {
			bindErr = errors.Wrapf(err, "bind flag %s", f.Name)
		}
	})
	return bindErr
}

func (m *manager) SetDefault(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.SetDefault(key, value)
}

func (m *manager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, viper.DecodeHook(DecodeHook())); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v, viper.DecodeHook(DecodeHook())); err != nil {
		return errors.Wrapf(err, "failed to unmarshal key %s", key)
	}
	return nil
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) ConfigFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file
}

// Watch 注册回调；首次调用时启动 fsnotify 监听
func (m *manager) Watch(callback func(fsnotify.Event)) error {
	m.mu.Lock()
	if m.file == "" {
		m.mu.Unlock()
		return ErrNotWatchable
	}
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching
	m.watching = true
	m.mu.Unlock()

	if !start {
		return nil
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.mu.RLock()
		callbacks := slices.Clone(m.callbacks)
		m.mu.RUnlock()

		for _, cb := range callbacks {
			cb(e)
		}
	})
	m.v.WatchConfig()
	return nil
}

// DecodeHook 配置解码钩子：时长字符串、逗号分隔切片
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

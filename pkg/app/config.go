package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/aquarium/pkg/config"
)

// EnvPrefix 环境变量前缀：AQUARIUM_LOG_LEVEL -> log.level
const EnvPrefix = "AQUARIUM"

// LoadResult 记录最终生效的来源，便于启动日志与热更新
type LoadResult struct {
	ConfigPath string
	LogPath    string
	Manager    config.Manager
}

// LoadConfig 统一加载配置，优先级：
// 1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
//
// fs 中可预先注册业务 flag（如 --user），flag 名即配置键；
// --config 未显式指定且默认路径不存在时只使用 env 与默认值。
func LoadConfig(target any, fs *pflag.FlagSet, args []string, defaults map[string]any) (*LoadResult, error) {
	if fs == nil {
		fs = pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	}

	execDir, err := GetExecDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get executable directory")
	}
	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", AppName+".log")

	if fs.Lookup("config") == nil {
		fs.StringP("config", "c", defaultConfig, "path to config file")
	}
	if fs.Lookup("log.output_path") == nil {
		fs.String("log.output_path", defaultLog, "output path for logs")
	}
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, errors.Wrap(err, "parse flags")
		}
	}

	mgr := config.NewManager(config.WithDefaults(defaults), config.WithEnvPrefix(EnvPrefix))

	configPath, _ := fs.GetString("config")
	if !fs.Changed("config") {
		if envPath := os.Getenv(EnvPrefix + "_CONFIG"); envPath != "" {
			configPath = envPath
		}
	}

	explicit := fs.Changed("config") || os.Getenv(EnvPrefix+"_CONFIG") != ""
	if err := mgr.LoadFile(configPath); err != nil {
		if explicit || !errors.Is(err, config.ErrConfigFileNotFound) {
			return nil, err
		}
		configPath = ""
	}

	if err := mgr.BindFlags(fs); err != nil {
		return nil, err
	}

	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}
	if err := config.Validate(target); err != nil {
		return nil, err
	}

	logPath := mgr.GetString("log.output_path")
	if mgr.GetString("log.enable_file") == "true" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create log directory for %s", logPath)
		}
	}

	return &LoadResult{ConfigPath: configPath, LogPath: logPath, Manager: mgr}, nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

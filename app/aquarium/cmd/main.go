package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/metrics"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/remote"
	"github.com/lk2023060901/aquarium/app/aquarium/internal/session"
	"github.com/lk2023060901/aquarium/pkg/app"
	"github.com/lk2023060901/aquarium/pkg/config"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/sentry"
)

// Config 客户端完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// User 本次会话的玩家
	User string `mapstructure:"user" validate:"required"`

	// Timezone 日界线时区（IANA 名称）
	Timezone string `mapstructure:"timezone" validate:"omitempty,timezone"`

	// MachineID sonyflake 机器号，多实例时需不同
	MachineID uint16 `mapstructure:"machine_id"`

	Remote     remote.Config     `mapstructure:"remote"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Sentry     sentry.Config     `mapstructure:"sentry"`
}

var defaults = map[string]any{
	"timezone":             "UTC",
	"remote.base_url":      "http://127.0.0.1:8080",
	"remote.timeout":       "5s",
	"prometheus.namespace": "aquarium",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet(app.AppName, pflag.ContinueOnError)
	fs.StringP("user", "u", "", "player user id")
	fs.String("remote.base_url", "", "player service base url")
	fs.String("log.level", "", "log level (debug/info/warn/error)")

	var cfg Config
	res, err := app.LoadConfig(&cfg, fs, args, defaults)
	if err != nil {
		return err
	}

	sc, err := sentry.New(&cfg.Sentry)
	if err != nil {
		return err
	}

	l, err := logger.New(&cfg.Log, logger.WithHooks(sc.LogHook()))
	if err != nil {
		return err
	}
	defer l.Sync()

	if res.ConfigPath != "" {
		watchLogLevel(res.Manager, l)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	promClient, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return err
	}
	m, err := metrics.New(promClient)
	if err != nil {
		return err
	}

	ids, err := idgen.NewSonyflake(cfg.MachineID, "")
	if err != nil {
		return err
	}
	client, err := remote.NewClient(&cfg.Remote, l, remote.WithObserver(m.ObserveRemote))
	if err != nil {
		return err
	}

	sess := session.New(client, ids, l, session.WithLocation(loc), session.WithMetrics(m))

	a := app.NewBaseApp(app.WithLogger(l), app.WithName("aquarium"))
	a.AppendServer(promClient, newSessionServer(sess, cfg.User, l))
	a.AppendCloser(promClient, sc)
	return a.Run()
}

// watchLogLevel 配置文件中 log.level 变化时热更新
func watchLogLevel(mgr config.Manager, l *logger.BaseLogger) {
	err := mgr.Watch(func(e fsnotify.Event) {
		level := logger.Level(mgr.GetString("log.level"))
		switch level {
		case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel:
		default:
			return
		}
		if level != l.CurrentLevel() {
			l.SetLevel(level)
			l.Info("log level reloaded", "level", level, "file", e.Name)
		}
	})
	if err != nil {
		l.Warn("config watch unavailable", "error", err)
	}
}

// Package metrics 客户端会话指标
package metrics

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/aquarium/internal/catchup"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
)

// Metrics 会话指标
type Metrics struct {
	// 远端请求数（按操作、结果）
	RemoteRequests *prometheus.CounterVec
	// 远端请求延迟
	RemoteDuration *prometheus.HistogramVec
	// 追赶结算次数（是否推进了时间）
	CatchupRuns *prometheus.CounterVec
	// 离线时长分布（小时）
	OfflineHours *prometheus.HistogramVec
	// 追赶中的死亡与发病
	FishDeaths  *prometheus.CounterVec
	FishIllness *prometheus.CounterVec
	// 玩家操作（按操作、结果）
	Actions *prometheus.CounterVec
	// 保存成功后广播的次数
	Broadcasts *prometheus.CounterVec
}

// New 在 client 上注册全部指标
func New(c *prometheus.Client) (*Metrics, error) {
	var (
		m    Metrics
		errs error
	)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		v, err := c.NewCounter(name, help, labels)
		errs = errors.CombineErrors(errs, err)
		return v
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		v, err := c.NewHistogram(name, help, labels, buckets)
		errs = errors.CombineErrors(errs, err)
		return v
	}

	m.RemoteRequests = counter("remote_requests_total", "玩家服务请求数", "op", "outcome")
	m.RemoteDuration = histogram("remote_request_duration_seconds", "玩家服务请求延迟（秒）",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}, "op")
	m.CatchupRuns = counter("catchup_runs_total", "离线追赶结算次数", "advanced")
	m.OfflineHours = histogram("catchup_offline_hours", "两次登录间隔（小时）",
		[]float64{1, 6, 12, 24, 48, 72, 168})
	m.FishDeaths = counter("catchup_fish_deaths_total", "离线期间饿死的鱼")
	m.FishIllness = counter("catchup_fish_illness_total", "离线期间因环境恶劣生病的鱼")
	m.Actions = counter("actions_total", "玩家操作数", "action", "result")
	m.Broadcasts = counter("store_broadcasts_total", "文档保存后的变更广播")

	if errs != nil {
		return nil, errors.Wrap(errs, "register aquarium metrics")
	}
	return &m, nil
}

// ObserveRemote 与 remote.RequestObserver 签名一致
func (m *Metrics) ObserveRemote(op, outcome string, elapsed time.Duration) {
	m.RemoteRequests.WithLabelValues(op, outcome).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveCatchup 与 catchup.Observer 签名一致
func (m *Metrics) ObserveCatchup(r *catchup.Report) {
	m.CatchupRuns.WithLabelValues(strconv.FormatBool(r.Advanced())).Inc()
	if r.HoursPassed > 0 {
		m.OfflineHours.WithLabelValues().Observe(r.HoursPassed)
	}
	m.FishDeaths.WithLabelValues().Add(float64(len(r.Deaths)))
	m.FishIllness.WithLabelValues().Add(float64(len(r.NewlySick)))
}

// ObserveAction 记录一次玩家操作
func (m *Metrics) ObserveAction(action string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.Actions.WithLabelValues(action, result).Inc()
}

// ObserveBroadcast 记录一次变更广播
func (m *Metrics) ObserveBroadcast() {
	m.Broadcasts.WithLabelValues().Inc()
}

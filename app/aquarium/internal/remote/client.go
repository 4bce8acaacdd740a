package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/lk2023060901/aquarium/pkg/config"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// 确保 Client 实现了 PlayerAPI 接口
var _ PlayerAPI = (*Client)(nil)

// RequestObserver 请求观测回调（metrics 使用）
type RequestObserver func(op, outcome string, elapsed time.Duration)

// Client 基于 HTTP/JSON 的玩家服务客户端
type Client struct {
	config   *Config
	http     *http.Client
	logger   logger.Logger
	observer RequestObserver
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver 设置请求观测回调
func WithObserver(fn RequestObserver) Option {
	return func(c *Client) { c.observer = fn }
}

// NewClient 创建玩家服务客户端
func NewClient(cfg *Config, l logger.Logger, opts ...Option) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	newCfg.BaseURL = strings.TrimRight(newCfg.BaseURL, "/")

	c := &Client{
		config: newCfg,
		http:   &http.Client{Timeout: newCfg.Timeout},
		logger: l.Named("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Fetch(ctx context.Context, userID string) (*playerdoc.PlayerState, error) {
	var doc playerdoc.PlayerState
	if err := c.do(ctx, "fetch", http.MethodGet, "/player/"+url.PathEscape(userID), nil, &doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return &doc, nil
}

func (c *Client) Create(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	var stored playerdoc.PlayerState
	if err := c.do(ctx, "create", http.MethodPost, "/player", doc, &stored); err != nil {
		return nil, err
	}
	if stored.UserID == "" {
		// 服务端只回了确认，没有回文档
		return doc, nil
	}
	stored.Normalize()
	return &stored, nil
}

func (c *Client) Persist(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	var stored playerdoc.PlayerState
	if err := c.do(ctx, "persist", http.MethodPut, "/player/"+url.PathEscape(doc.UserID), doc, &stored); err != nil {
		return nil, err
	}
	stored.Normalize()
	return &stored, nil
}

func (c *Client) FetchQuiz(ctx context.Context) ([]playerdoc.QuizQuestion, error) {
	var questions []playerdoc.QuizQuestion
	if err := c.do(ctx, "quiz", http.MethodGet, "/quiz", nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// do 发送请求并按状态码分类错误；out 为 nil 时丢弃响应体
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(op, outcome(err), time.Since(start))
		}
	}()

	var body io.Reader
	if in != nil {
		raw, mErr := json.Marshal(in)
		if mErr != nil {
			return errors.Wrapf(mErr, "%s: marshal request", op)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "request_id", reqID, "error", err)
		return errors.Mark(errors.Wrapf(err, "%s %s", method, path), ErrNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s: read response", op), ErrNetwork)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Mark(errors.Wrapf(err, "%s: decode response", op), ErrServer)
	}
	return nil
}

// classify 把非 2xx 响应映射为带 sentinel 标记的错误
func classify(op string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	se := &StatusError{Op: op, Status: status, Body: snippet}

	switch {
	case status == http.StatusNotFound:
		return errors.Mark(se, ErrNotFound)
	case status == http.StatusBadRequest && strings.Contains(string(body), alreadyExistsMarker):
		return errors.Mark(se, ErrAlreadyExists)
	case status >= 500:
		return errors.Mark(se, ErrServer)
	default:
		return errors.Mark(se, ErrRejected)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrServer):
		return "server"
	default:
		return "rejected"
	}
}

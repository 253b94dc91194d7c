// 包 fetch 封装共享 HTTP 客户端（代理/连接与读取超时/重试/请求头预设），
// 用于抓取朋友列表、探测与解析订阅。所有 worker 共用同一个 Client 以复用连接。
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// 标识本聚合器的 User-Agent；可用环境变量 COF_UA 覆盖。
const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/123.0.0.0 Safari/537.36 (Friend-Circle-Lite/1.0; +https://github.com/willow-god/Friend-Circle-Lite)"

// Profile 选择请求头预设。
type Profile int

const (
	// JSON 用于朋友列表与合并数据。
	JSON Profile = iota
	// XML 用于订阅探测与解析。
	XML
	// HTML 用于友链页。
	HTML
)

const acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http  *http.Client
	retry int
	ua    string
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	// ConnectTimeout 建连超时，ReadTimeout 等待响应头超时，Timeout 为单次请求总超时。
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Timeout        time.Duration
	Retry          int
}

// New 创建客户端，支持 http/https 代理与连接/读取超时配置。
func New(opts Options) (*Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	var httpsProxy, httpProxy *url.URL
	if opts.ProxyHTTPS != "" {
		u, err := url.Parse(opts.ProxyHTTPS)
		if err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
		httpsProxy = u
	}
	if opts.ProxyHTTP != "" {
		u, err := url.Parse(opts.ProxyHTTP)
		if err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
		httpProxy = u
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsProxy != nil {
				return httpsProxy, nil
			}
			if req.URL.Scheme == "http" && httpProxy != nil {
				return httpProxy, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
	ua := os.Getenv("COF_UA")
	if ua == "" {
		ua = defaultUA
	}
	return &Client{
		http:  &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry: max(0, opts.Retry),
		ua:    ua,
	}, nil
}

// newRequest 按预设填充请求头。
func (c *Client) newRequest(ctx context.Context, rawURL string, p Profile) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("X-Friend-Circle", "1.0")
	switch p {
	case XML:
		req.Header.Set("Accept", "application/atom+xml, application/rss+xml, application/xml;q=0.9, */*;q=0.8")
		req.Header.Set("Accept-Language", acceptLanguage)
	case HTML:
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	return req, nil
}

// Get 请求 2xx 响应，失败时按线性回退重试。
func (c *Client) Get(ctx context.Context, rawURL string, p Profile) (*http.Response, error) {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		req, err := c.newRequest(ctx, rawURL, p)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("http status: %s", resp.Status)
			resp.Body.Close()
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// Probe 单次请求且不重试，返回任意状态码的响应，由调用方判定。
func (c *Client) Probe(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, rawURL, XML)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// GetJSON 抓取 JSON 文档并解码到 v。
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.Get(ctx, rawURL, JSON)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", rawURL, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

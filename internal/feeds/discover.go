// 包 feeds 负责订阅发现与解析：
// - Discover：按固定顺序探测常见订阅路径，首个命中即返回
// - Parse：使用 gofeed 解析 RSS/Atom 并归一化时间与链接
// - SanitizeLink：修复指向 localhost/IP 的文章链接
package feeds

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/logx"
)

// Type 为探测命中的订阅类型标记。
type Type string

const (
	// TypeNone 表示未找到订阅。
	TypeNone Type = "none"
	// TypeSpecific 表示订阅地址来自手动配置或缓存。
	TypeSpecific Type = "specific"
)

// candidate 为一条探测路径。
type candidate struct {
	typ  Type
	path string
}

// 探测顺序即优先级，不可随意调整。
var candidates = []candidate{
	{"atom", "/atom.xml"},
	{"rss", "/rss.xml"},
	{"rss2", "/rss2.xml"},
	{"rss3", "/rss.php"},
	{"feed", "/feed"},
	{"feed2", "/feed.xml"},
	{"feed3", "/feed/"},
	{"feed4", "/feed.php"},
	{"index", "/index.xml"},
}

// 嗅探正文时读取的字节数。
const sniffBytes = 1000

// Service 持有共享 HTTP 客户端，提供发现与解析。
type Service struct {
	cl           *fetch.Client
	probeTimeout time.Duration
}

// NewService 创建 Service；probeTimeout<=0 时使用 10 秒。
func NewService(cl *fetch.Client, probeTimeout time.Duration) *Service {
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Service{cl: cl, probeTimeout: probeTimeout}
}

// Discover 依次探测候选路径，返回首个像订阅的地址；全部未命中返回 (TypeNone, site)。
// 单个候选的网络错误只视为"不是它"，继续探测下一个。
func (s *Service) Discover(ctx context.Context, site string) (Type, string) {
	base := strings.TrimRight(site, "/")
	for _, c := range candidates {
		u := base + c.path
		logx.Debugf("探测候选订阅：%s", u)
		if s.probe(ctx, u) {
			return c.typ, u
		}
	}
	logx.Warnf("无法找到 %s 的订阅链接", site)
	return TypeNone, site
}

// probe 判定 URL 是否为订阅：状态码 200，且 Content-Type 或正文开头带有订阅特征。
func (s *Service) probe(ctx context.Context, feedURL string) bool {
	prCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	resp, err := s.cl.Probe(prCtx, feedURL)
	if err != nil {
		logx.Debugf("探测失败：%s 错误=%v", feedURL, err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if looksLikeFeedType(resp.Header.Get("Content-Type")) {
		return true
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, sniffBytes))
	return looksLikeFeedBody(head)
}

func looksLikeFeedType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")
}

func looksLikeFeedBody(head []byte) bool {
	lb := strings.ToLower(string(head))
	return strings.Contains(lb, "<rss") || strings.Contains(lb, "<feed") || strings.Contains(lb, "<rdf:rdf")
}

package feeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/timefmt"
)

// ParsedFeed 为解析结果；任何失败都返回零值，调用方应把空 Entries 视为失败。
type ParsedFeed struct {
	SiteName string
	Author   string
	Link     string
	Entries  []Entry
}

// Entry 为解析后的单篇文章，Published 为归一化时间或空串。
type Entry struct {
	Title     string
	Author    string
	Link      string
	Published string
	Summary   string
	Content   string
}

// 订阅文档读取上限。
const maxFeedBytes = 8 << 20

// Parse 抓取并解析订阅，按时间倒序返回至多 max 篇（max<=0 表示不限制）。
func (s *Service) Parse(ctx context.Context, feedURL string, max int, site string) ParsedFeed {
	pf, err := s.parse(ctx, feedURL, max, site)
	if err != nil {
		logx.Errorf("无法解析订阅地址：%s 错误=%v", feedURL, err)
		return ParsedFeed{}
	}
	return pf
}

func (s *Service) parse(ctx context.Context, feedURL string, max int, site string) (ParsedFeed, error) {
	resp, err := s.cl.Get(ctx, feedURL, fetch.XML)
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("GET feed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("read feed: %w", err)
	}
	body := decodeBody(raw, resp.Header.Get("Content-Type"))
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("parse feed: %w", err)
	}
	return buildParsed(feed, max, site), nil
}

// buildParsed 将 gofeed 结构归一化为 ParsedFeed。
func buildParsed(feed *gofeed.Feed, max int, site string) ParsedFeed {
	pf := ParsedFeed{
		SiteName: strings.TrimSpace(feed.Title),
		Author:   feedAuthor(feed),
		Link:     strings.TrimSpace(feed.Link),
	}
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		title := strings.TrimSpace(it.Title)
		var published string
		switch {
		case it.PublishedParsed != nil || it.Published != "":
			published = normalize(it.Published, it.PublishedParsed)
		case it.UpdatedParsed != nil || it.Updated != "":
			published = normalize(it.Updated, it.UpdatedParsed)
			logx.Warnf("文章 %s 未包含发布时间，已使用更新时间 %s", title, published)
		default:
			logx.Warnf("文章 %s 未包含任何时间信息，请检查原文", title)
		}
		content := it.Content
		if content == "" {
			content = it.Description
		}
		pf.Entries = append(pf.Entries, Entry{
			Title:     title,
			Author:    pf.Author,
			Link:      SanitizeLink(strings.TrimSpace(it.Link), site),
			Published: published,
			Summary:   it.Description,
			Content:   content,
		})
	}
	SortEntries(pf.Entries)
	if max > 0 && len(pf.Entries) > max {
		pf.Entries = pf.Entries[:max]
	}
	return pf
}

// SortEntries 按 Published 倒序稳定排序；固定格式的时间串可直接按字典序比较，空值排最后。
func SortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].Published > es[j].Published })
}

// normalize 优先使用 gofeed 已解析的时间，否则交给 timefmt 解析原始字符串。
func normalize(raw string, parsed *time.Time) string {
	if parsed != nil {
		return timefmt.FromTime(*parsed)
	}
	return timefmt.Format(raw)
}

func feedAuthor(feed *gofeed.Feed) string {
	for _, a := range feed.Authors {
		if a != nil && a.Name != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if feed.Author != nil {
		return strings.TrimSpace(feed.Author.Name)
	}
	return ""
}

// decodeBody 尽力把非 UTF-8 文档转为 UTF-8。声明了非 UTF-8 编码的文档交给解析器按声明处理；
// 未声明或声明为 UTF-8 却不是合法 UTF-8 的，依次按 Content-Type、内容探测确定编码。
func decodeBody(b []byte, contentType string) []byte {
	if utf8.Valid(b) {
		return b
	}
	if decl := xmlEncoding(b); decl != "" && !isUTF8Label(decl) {
		return b
	}
	enc, name := guessEncoding(b, contentType)
	out, err := transcode(enc, b)
	if err != nil {
		logx.Debugf("按 %s 转码失败：%v", name, err)
		return b
	}
	logx.Debugf("订阅内容按 %s 转码", name)
	return out
}

func guessEncoding(b []byte, contentType string) (encoding.Encoding, string) {
	if e, name, certain := charset.DetermineEncoding(b, contentType); certain && !isUTF8Label(name) {
		return e, name
	}
	if r, err := chardet.NewTextDetector().DetectBest(b); err == nil && !isUTF8Label(r.Charset) {
		if e, name := lookupCharset(r.Charset); e != nil {
			return e, name
		}
	}
	e, name, _ := charset.DetermineEncoding(b, "")
	return e, name
}

// lookupCharset 兼容探测器给出的 "GB-18030" 一类写法。
func lookupCharset(label string) (encoding.Encoding, string) {
	if e, name := charset.Lookup(label); e != nil {
		return e, name
	}
	return charset.Lookup(strings.ReplaceAll(label, "-", ""))
}

func isUTF8Label(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	return l == "utf-8" || l == "utf8"
}

func transcode(enc encoding.Encoding, b []byte) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(b), enc.NewDecoder()))
}

// xmlEncoding 返回 XML 声明中的 encoding 值，没有声明时返回 ""。
func xmlEncoding(b []byte) string {
	head := b
	if len(head) > 200 {
		head = head[:200]
	}
	head = bytes.TrimSpace(head)
	end := bytes.Index(head, []byte("?>"))
	if !bytes.HasPrefix(head, []byte("<?xml")) || end < 0 {
		return ""
	}
	m := xmlEncodingAttr.FindSubmatch(head[:end])
	if m == nil {
		return ""
	}
	return string(m[1])
}

var xmlEncodingAttr = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)

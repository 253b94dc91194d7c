package friends

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/model"
	"go-friend-circle/internal/rules"
)

// ParseFriendsPage 根据选择器预设从友链页抽取朋友信息。
// 规则语法：
// - 文本：".name" 或 "."（取当前项文本）
// - 属性："a@href"/"img@src"/"@href"（当前项属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
func ParseFriendsPage(ctx context.Context, cl *fetch.Client, pageURL string, preset rules.Preset) ([]model.Friend, error) {
	if preset.FriendsPage == nil {
		return nil, fmt.Errorf("no friends_page preset for %s", pageURL)
	}
	resp, err := cl.Get(ctx, pageURL, fetch.HTML)
	if err != nil {
		return nil, fmt.Errorf("GET friends page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parse friends page html: %w", err)
	}
	fp := preset.FriendsPage
	var out []model.Friend
	doc.Find(fp.Item).Each(func(_ int, s *goquery.Selection) {
		name := getVal(s, fp.Name)
		link := abs(pageURL, getVal(s, fp.Link))
		avatar := abs(pageURL, getVal(s, fp.Avatar))
		name = strings.TrimSpace(name)
		// 名称是缓存与手动配置的键，缺失时无法处理
		if name == "" || link == "" {
			return
		}
		out = append(out, model.Friend{
			Name:   name,
			Link:   link,
			Avatar: avatar,
		})
	})
	return out, nil
}

// getVal 依次尝试以 "||" 分隔的表达式，返回第一个非空值，
// 例如 "a@href||@data-href" 或 ".name||.friend-name||."。
func getVal(scope *goquery.Selection, expr string) string {
	for _, part := range strings.Split(expr, "||") {
		if v := evalExpr(scope, strings.TrimSpace(part)); v != "" {
			return v
		}
	}
	return ""
}

// evalExpr 解析单个表达式："." 取当前项文本，"sel@attr" 取属性（sel 为空表示当前项），否则取 sel 的文本。
func evalExpr(scope *goquery.Selection, expr string) string {
	switch {
	case expr == "":
		return ""
	case expr == ".":
		return strings.TrimSpace(scope.Text())
	}
	target := scope
	sel, attr, isAttr := strings.Cut(expr, "@")
	sel = strings.TrimSpace(sel)
	if sel != "" {
		target = scope.Find(sel).First()
		if target.Length() == 0 {
			return ""
		}
	}
	if isAttr {
		return strings.TrimSpace(target.AttrOr(strings.TrimSpace(attr), ""))
	}
	return strings.TrimSpace(target.Text())
}

// abs 以友链页地址为基准将相对链接绝对化，解析失败时原样返回。
func abs(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	ru, err := url.Parse(ref)
	if err != nil || ru.IsAbs() {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

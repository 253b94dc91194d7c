package aggregate

import (
	"context"

	"go-friend-circle/internal/feeds"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
)

// FeedSource 为处理单个朋友所需的发现与解析能力，*feeds.Service 实现了它。
type FeedSource interface {
	Discover(ctx context.Context, site string) (feeds.Type, string)
	Parse(ctx context.Context, feedURL string, max int, site string) feeds.ParsedFeed
}

// ProcessFriend 处理单个朋友：选源 → 解析 → （仅缓存源）修复 → 定状态。
// 不做额外重试；缓存变更只以意图形式返回，由汇总方统一对账。
func ProcessFriend(ctx context.Context, src FeedSource, f model.Friend, table model.SourceTable, max int) model.FriendResult {
	log := logx.Friend(f.Name, f.Link)
	res := model.FriendResult{
		Name:        f.Name,
		FeedType:    string(feeds.TypeNone),
		SourceUsed:  model.SourceNone,
		CacheUpdate: model.CacheUpdate{Action: model.ActionNone, Name: f.Name},
	}

	// 1) 选源：手动/缓存优先，否则自动探测
	var origin model.Origin
	if e, ok := table[f.Name]; ok && e.FeedURL != "" {
		origin = e.Origin
		res.FeedURL = e.FeedURL
		res.FeedType = string(feeds.TypeSpecific)
		res.SourceUsed = model.Source(e.Origin)
		log.Info("使用预设订阅源", "feed", e.FeedURL, "source", string(e.Origin))
	} else {
		typ, u := src.Discover(ctx, f.Link)
		res.SourceUsed = model.SourceAuto
		log.Info("自动探测订阅", "type", string(typ), "feed", u)
		if typ != feeds.TypeNone && u != "" {
			res.FeedType, res.FeedURL = string(typ), u
			res.CacheUpdate = model.CacheUpdate{
				Action: model.ActionSet, Name: f.Name, URL: u, Reason: model.ReasonAutoDiscovered,
			}
		}
	}

	// 2) 解析；零篇文章与解析异常同样视为失败
	parseErr := false
	if res.FeedType != string(feeds.TypeNone) && res.FeedURL != "" {
		res.Articles = toArticles(src.Parse(ctx, res.FeedURL, max, f.Link), f)
		parseErr = len(res.Articles) == 0
	}

	// 3) 修复：只针对缓存源，手动源不重新探测
	if parseErr && origin == model.OriginCache {
		log.Info("缓存订阅无效，重新探测", "feed", res.FeedURL)
		res.Articles = nil
		typ, u := src.Discover(ctx, f.Link)
		var repaired []model.Article
		if typ != feeds.TypeNone && u != "" {
			repaired = toArticles(src.Parse(ctx, u, max, f.Link), f)
		}
		if len(repaired) > 0 {
			res.Articles = repaired
			res.FeedType, res.FeedURL = string(typ), u
			res.SourceUsed = model.SourceAuto
			res.CacheUpdate = model.CacheUpdate{
				Action: model.ActionSet, Name: f.Name, URL: u, Reason: model.ReasonRepairCache,
			}
		} else {
			log.Warn("重新探测仍失败，移除缓存", "feed", u)
			res.FeedType, res.FeedURL = string(feeds.TypeNone), ""
			res.CacheUpdate = model.CacheUpdate{
				Action: model.ActionDelete, Name: f.Name, Reason: model.ReasonRemoveInvalid,
			}
		}
	}

	// 4) 定状态
	if len(res.Articles) > 0 {
		res.Status = model.StatusActive
		for _, a := range res.Articles {
			log.Debug("发布了文章", "title", a.Title, "created", a.Created, "link", a.Link)
		}
		return res
	}
	res.Status = model.StatusError
	if res.FeedType == string(feeds.TypeNone) {
		log.Warn("未找到有效订阅")
	} else {
		log.Warn("订阅未解析出文章", "feed", res.FeedURL)
	}
	return res
}

// toArticles 转换为输出文章：作者统一为朋友名称并附上头像。
func toArticles(pf feeds.ParsedFeed, f model.Friend) []model.Article {
	if len(pf.Entries) == 0 {
		return nil
	}
	out := make([]model.Article, 0, len(pf.Entries))
	for _, e := range pf.Entries {
		out = append(out, model.Article{
			Title:   e.Title,
			Created: e.Published,
			Link:    e.Link,
			Author:  f.Name,
			Avatar:  f.Avatar,
		})
	}
	return out
}

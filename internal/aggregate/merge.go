package aggregate

import (
	"context"
	"sort"
	"strings"

	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
)

// DefaultCreated 仅在裁剪阶段替代缺失的时间，解析阶段从不填充。
const DefaultCreated = "2024-01-01 00:00"

// DefaultMaxArticles 为保留策略的默认上限。
const DefaultMaxArticles = 150

// SortArticles 按 Created 倒序稳定排序，空时间排最后。
func SortArticles(as []model.Article) {
	sort.SliceStable(as, func(i, j int) bool { return as[i].Created > as[j].Created })
}

// MergeExternal 追加外部文章并按链接去重：同一链接保留首次出现的位置，内容以最后一次为准。
func MergeExternal(res *model.Result, ext model.Result) {
	logx.Infof("开始合并数据，原数据共有 %d 篇文章，第三方数据共有 %d 篇文章", len(res.Articles), len(ext.Articles))
	all := append(append([]model.Article{}, res.Articles...), ext.Articles...)
	pos := make(map[string]int, len(all))
	merged := make([]model.Article, 0, len(all))
	for _, a := range all {
		if i, ok := pos[a.Link]; ok {
			merged[i] = a
			continue
		}
		pos[a.Link] = len(merged)
		merged = append(merged, a)
	}
	res.Articles = merged
	res.Stats.ArticleNum = len(merged)
	logx.Infof("合并数据完成，现在共有 %d 篇文章", len(merged))
}

// CapDataset 按时间倒序排序后保留前 max 篇，
// 之后的文章仅保留作者出现在前 max 篇中的那些。
func CapDataset(res *model.Result, max int) {
	if max <= 0 {
		max = DefaultMaxArticles
	}
	for i := range res.Articles {
		if res.Articles[i].Created == "" {
			logx.Warnf("文章 %s 未包含时间信息，已设置为默认时间 %s", res.Articles[i].Title, DefaultCreated)
			res.Articles[i].Created = DefaultCreated
		}
	}
	SortArticles(res.Articles)
	if len(res.Articles) <= max {
		res.Stats.ArticleNum = len(res.Articles)
		return
	}
	logx.Infof("数据量较大，开始进行处理...")
	top := res.Articles[:max]
	authors := make(map[string]struct{}, len(top))
	for _, a := range top {
		authors[a.Author] = struct{}{}
	}
	kept := append([]model.Article{}, top...)
	for _, a := range res.Articles[max:] {
		if _, ok := authors[a.Author]; ok {
			kept = append(kept, a)
		}
	}
	res.Articles = kept
	res.Stats.ArticleNum = len(kept)
	logx.Infof("数据处理完成，保留 %d 篇文章", len(kept))
}

// FilterErrors 只保留同样出现在外部错误列表（按 URL 匹配）中的本地错误朋友。
func FilterErrors(local []model.Friend, external [][]string) []model.Friend {
	urls := make(map[string]struct{}, len(external))
	for _, e := range external {
		if len(e) >= 2 {
			urls[e[1]] = struct{}{}
		}
	}
	out := make([]model.Friend, 0, len(local))
	for _, f := range local {
		if _, ok := urls[f.Link]; ok {
			out = append(out, f)
		}
	}
	logx.Infof("合并错误信息完成，合并后共有 %d 位朋友", len(out))
	return out
}

// MergeRemote 从 <base>/all.json 与 <base>/errors.json 合并数据；任一获取失败都保持原数据不变。
func (r *Runner) MergeRemote(ctx context.Context, res *model.Result, errs []model.Friend, base string) []model.Friend {
	base = strings.TrimRight(base, "/")
	var ext model.Result
	if err := r.fetch.GetJSON(ctx, base+"/all.json", &ext); err != nil {
		logx.Errorf("无法获取合并数据：%s 错误=%v", base+"/all.json", err)
	} else {
		MergeExternal(res, ext)
	}
	var extErrs [][]string
	if err := r.fetch.GetJSON(ctx, base+"/errors.json", &extErrs); err != nil {
		logx.Errorf("无法获取合并错误信息：%s 错误=%v", base+"/errors.json", err)
		return errs
	}
	return FilterErrors(errs, extErrs)
}

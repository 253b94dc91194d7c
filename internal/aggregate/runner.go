// 包 aggregate 负责主流程编排：
// - 合并朋友来源、构建订阅源表（缓存 + 手动）
// - 有界并发处理每个朋友，单一收集方汇总结果与缓存变更意图
// - 对账并保存缓存，合并外部结果并按保留策略裁剪
package aggregate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go-friend-circle/internal/cache"
	"go-friend-circle/internal/config"
	"go-friend-circle/internal/feeds"
	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/friends"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
	"go-friend-circle/internal/rules"
	"go-friend-circle/internal/timefmt"
)

// DefaultWorkers 为并发上限的默认值，与朋友数量无关。
const DefaultWorkers = 10

// Runner 聚合执行器，持有配置/HTTP 客户端/订阅服务/规则。
type Runner struct {
	cfg   *config.Config
	rules *rules.Rules
	fetch *fetch.Client
	feeds FeedSource
}

// New 创建 Runner；rl 为空时使用内置友链页预设。
func New(cfg *config.Config, cl *fetch.Client, rl *rules.Rules) *Runner {
	if rl == nil {
		rl = rules.Builtin()
	}
	return &Runner{
		cfg:   cfg,
		rules: rl,
		fetch: cl,
		feeds: feeds.NewService(cl, 10*time.Second),
	}
}

// Outcome 为一次并发处理的汇总。
type Outcome struct {
	Result  model.Result
	Results []model.FriendResult // 完成顺序
	Errors  []model.Friend
	Updates []model.CacheUpdate
}

// Report 为完整一轮运行的产出。
type Report struct {
	Result  model.Result
	Friends []model.Friend
	Results []model.FriendResult
	Errors  []model.Friend
	Cache   cache.Cache
}

// Run 执行一轮聚合：加载缓存 → 获取朋友 → 并发处理 → 对账保存缓存 → 合并外部数据 → 裁剪。
// 只有朋友列表获取失败会返回错误。
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	orig := cache.Load(r.cfg.CacheFile)
	table, manualNames := cache.BuildSourceTable(orig, r.cfg.ManualSources())
	logx.Infof("订阅源表：缓存=%d，手动=%d", len(orig), len(manualNames))

	list, err := r.LoadFriends(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		logx.Warnf("没有发现任何朋友（静态、JSON 或页面）")
	}

	out := r.Aggregate(ctx, list, table)

	next := cache.Reconcile(orig, manualNames, out.Updates)
	if err := cache.Save(r.cfg.CacheFile, next); err != nil {
		logx.Errorf("保存缓存失败：%v", err)
	}

	rep := &Report{
		Result:  out.Result,
		Friends: list,
		Results: out.Results,
		Errors:  out.Errors,
		Cache:   next,
	}
	if r.cfg.Merge.Enable {
		rep.Errors = r.MergeRemote(ctx, &rep.Result, rep.Errors, r.cfg.Merge.URL)
	}
	CapDataset(&rep.Result, r.cfg.MaxArticles)
	logx.Infof("数据处理完成，总共有 %d 位朋友，其中 %d 位博客可访问，%d 位博客无法访问，共 %d 篇文章",
		rep.Result.Stats.FriendsNum, rep.Result.Stats.ActiveNum, rep.Result.Stats.ErrorNum, rep.Result.Stats.ArticleNum)
	return rep, nil
}

// LoadFriends 汇总静态、JSON 与友链页来源并按名称去重。
// JSON 文档是必需来源，获取失败即中止；友链页失败只记录警告。
func (r *Runner) LoadFriends(ctx context.Context) ([]model.Friend, error) {
	lists := [][]model.Friend{r.cfg.Friends()}
	for _, src := range r.cfg.LinkSources {
		switch src.Type {
		case "json":
			found, err := friends.FetchList(ctx, r.fetch, src.URL)
			if err != nil {
				return nil, fmt.Errorf("无法获取朋友列表 %s: %w", src.URL, err)
			}
			logx.Infof("%s 获取到 %d 位朋友", src.URL, len(found))
			lists = append(lists, found)
		case "page":
			preset, _ := r.rules.GetPreset(src.Theme)
			found, err := friends.ParseFriendsPage(ctx, r.fetch, src.URL, preset)
			if err != nil {
				logx.Warnf("解析友链页失败：%s 错误=%v", src.URL, err)
				continue
			}
			logx.Infof("%s 解析到 %d 位朋友", src.URL, len(found))
			lists = append(lists, found)
		}
	}
	return friends.Merge(lists...), nil
}

// Aggregate 以配置的并发上限处理朋友列表。
func (r *Runner) Aggregate(ctx context.Context, list []model.Friend, table model.SourceTable) Outcome {
	return Aggregate(ctx, r.feeds, list, table, r.cfg.Concurrency.Fetch, r.cfg.MaxPostsNum)
}

// taskResult 为单个任务交回收集方的值；err 非空表示任务意外失败。
type taskResult struct {
	friend model.Friend
	result model.FriendResult
	err    error
}

// Aggregate 在有界 worker 池中处理每个朋友。worker 只返回值，
// 计数、文章与缓存变更仅由本函数中的收集循环写入，因此无需加锁。
func Aggregate(ctx context.Context, src FeedSource, list []model.Friend, table model.SourceTable, workers, maxPosts int) Outcome {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make(chan taskResult, len(list))
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, f := range list {
			f := f
			g.Go(func() error {
				results <- runTask(ctx, src, f, table, maxPosts)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	out := Outcome{Result: model.Result{Articles: []model.Article{}}}
	stats := &out.Result.Stats
	stats.FriendsNum = len(list)
	for tr := range results {
		if tr.err != nil {
			logx.Errorf("处理 %s (%s) 时发生错误：%v", tr.friend.Name, tr.friend.Link, tr.err)
			stats.ErrorNum++
			out.Errors = append(out.Errors, tr.friend)
			continue
		}
		out.Results = append(out.Results, tr.result)
		if tr.result.CacheUpdate.Action != model.ActionNone {
			out.Updates = append(out.Updates, tr.result.CacheUpdate)
		}
		if tr.result.Status == model.StatusActive {
			stats.ActiveNum++
			out.Result.Articles = append(out.Result.Articles, tr.result.Articles...)
		} else {
			stats.ErrorNum++
			out.Errors = append(out.Errors, tr.friend)
		}
	}
	SortArticles(out.Result.Articles)
	stats.ArticleNum = len(out.Result.Articles)
	stats.LastUpdatedTime = timefmt.Now()
	return out
}

// runTask 执行单个朋友的处理，并把 panic 转为该朋友的错误，避免影响整批。
func runTask(ctx context.Context, src FeedSource, f model.Friend, table model.SourceTable, maxPosts int) (tr taskResult) {
	tr.friend = f
	defer func() {
		if p := recover(); p != nil {
			tr.err = fmt.Errorf("panic: %v", p)
		}
	}()
	tr.result = ProcessFriend(ctx, src, f, table, maxPosts)
	return tr
}

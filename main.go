// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端
// - 执行一轮聚合并导出 data.json/errors.json，非极简模式下归档到 SQLite
// - 支持发现调试（-discover）：只打印朋友与订阅地址，不写任何文件
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"time"

	"go-friend-circle/internal/aggregate"
	"go-friend-circle/internal/config"
	"go-friend-circle/internal/export"
	"go-friend-circle/internal/feeds"
	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
	"go-friend-circle/internal/rules"
	"go-friend-circle/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		discover   = flag.Bool("discover", false, "print friends and their discovered feeds, then exit")
	)
	flag.Parse()

	// 1) 加载配置与规则
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	rl := loadRules(*rulesPath)

	// 2) 共享 HTTP 客户端（代理、超时与重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    25 * time.Second,
		Retry:      cfg.Concurrency.Retry,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}

	ctx := context.Background()
	run := aggregate.New(cfg, cl, rl)

	if *discover {
		if err := discoverOnly(ctx, run, cl); err != nil {
			logx.Errorf("发现失败：%v", err)
			os.Exit(1)
		}
		return
	}

	// 3) 运行聚合流程
	logx.Infof("开始聚合：极简模式=%v", cfg.SimpleMode)
	rep, err := run.Run(ctx)
	if err != nil {
		logx.Errorf("运行失败：%v", err)
		os.Exit(1)
	}

	// 4) 导出
	if err := export.Write(rep.Result, rep.Errors, cfg.Output.Data, cfg.Output.Errors); err != nil {
		logx.Errorf("导出失败：%v", err)
		os.Exit(1)
	}
	logx.Infof("已导出 %s 与 %s", cfg.Output.Data, cfg.Output.Errors)

	// 5) 归档：极简模式不打开数据库
	if cfg.SimpleMode {
		return
	}
	if err := archive(ctx, cfg, rep); err != nil {
		logx.Errorf("归档失败：%v", err)
		os.Exit(1)
	}
}

// loadRules 读取友链页规则；文件不存在时使用内置预设。
func loadRules(path string) *rules.Rules {
	if path == "" {
		return rules.Builtin()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logx.Debugf("未找到规则文件 %s，使用内置预设", path)
		return rules.Builtin()
	}
	rl, err := rules.Load(path)
	if err != nil {
		logx.Warnf("加载规则失败，使用内置预设：%v", err)
		return rules.Builtin()
	}
	return rl
}

// discoverOnly 汇总朋友并逐个探测订阅地址，只输出日志。
func discoverOnly(ctx context.Context, run *aggregate.Runner, cl *fetch.Client) error {
	list, err := run.LoadFriends(ctx)
	if err != nil {
		return err
	}
	svc := feeds.NewService(cl, 10*time.Second)
	found := 0
	for _, f := range list {
		typ, u := svc.Discover(ctx, f.Link)
		if typ == feeds.TypeNone {
			logx.Warnf("- 名称=%q 链接=%s 未发现订阅", f.Name, f.Link)
			continue
		}
		found++
		logx.Infof("- 名称=%q 链接=%s 订阅=%s (%s)", f.Name, f.Link, u, typ)
	}
	logx.Infof("共 %d 位朋友，%d 位发现订阅", len(list), found)
	return nil
}

func archive(ctx context.Context, cfg *config.Config, rep *aggregate.Report) error {
	st, err := store.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.ResetOnStart {
		if err := st.Reset(ctx); err != nil {
			return err
		}
		logx.Infof("已清空归档表（friends/articles）")
	}
	if err := st.Archive(ctx, friendRows(rep), rep.Result.Articles); err != nil {
		return err
	}
	n, err := st.CleanOldPosts(ctx, cfg.OutdateCleanDays)
	if err != nil {
		return err
	}
	if n > 0 {
		logx.Infof("已清理 %d 篇超过 %d 天的文章", n, cfg.OutdateCleanDays)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	logx.Infof("归档完成：朋友=%d 文章=%d", stats.FriendsNum, stats.ArticleNum)
	return nil
}

// friendRows 将本轮朋友与处理结果合并为归档行；没有结果的朋友（任务异常）记为 error。
func friendRows(rep *aggregate.Report) []store.FriendRow {
	byName := make(map[string]model.FriendResult, len(rep.Results))
	for _, r := range rep.Results {
		byName[r.Name] = r
	}
	now := time.Now()
	rows := make([]store.FriendRow, 0, len(rep.Friends))
	for _, f := range rep.Friends {
		row := store.FriendRow{Friend: f, Status: model.StatusError, UpdatedAt: now}
		if r, ok := byName[f.Name]; ok {
			row.Status = r.Status
			row.FeedURL = r.FeedURL
		}
		rows = append(rows, row)
	}
	return rows
}

// 包 store 提供可选的 SQLite 归档（SIMPLE_MODE=false 时启用）：
// 记录每位朋友最近一次的状态与订阅地址，并累积历史文章，支持过期清理。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-friend-circle/internal/model"
	"go-friend-circle/internal/timefmt"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// FriendRow 为归档中的朋友状态。
type FriendRow struct {
	model.Friend
	Status    model.Status
	FeedURL   string
	UpdatedAt time.Time
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, table := range []string{"articles", "friends"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS friends (
            name TEXT PRIMARY KEY,
            link TEXT,
            avatar TEXT,
            status TEXT,
            feed_url TEXT,
            updated_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS articles (
            link TEXT PRIMARY KEY,
            title TEXT,
            created TEXT,
            author TEXT,
            avatar TEXT,
            fetched_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

const upsertFriendSQL = `INSERT INTO friends(name, link, avatar, status, feed_url, updated_at)
        VALUES(?,?,?,?,?,?)
        ON CONFLICT(name) DO UPDATE SET link=excluded.link, avatar=excluded.avatar,
            status=excluded.status, feed_url=excluded.feed_url, updated_at=excluded.updated_at`

const upsertArticleSQL = `INSERT INTO articles(link, title, created, author, avatar, fetched_at)
        VALUES(?,?,?,?,?,?)
        ON CONFLICT(link) DO UPDATE SET title=excluded.title, created=excluded.created,
            author=excluded.author, avatar=excluded.avatar, fetched_at=excluded.fetched_at`

func upsertFriend(ctx context.Context, tx *sql.Tx, r FriendRow) error {
	if r.Name == "" {
		return errors.New("friend.name required")
	}
	if _, err := tx.ExecContext(ctx, upsertFriendSQL,
		r.Name, r.Link, r.Avatar, string(r.Status), r.FeedURL, nowOr(r.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert friend %s: %w", r.Name, err)
	}
	return nil
}

func upsertArticle(ctx context.Context, tx *sql.Tx, a model.Article, fetchedAt time.Time) error {
	if a.Link == "" {
		return errors.New("article.link required")
	}
	if _, err := tx.ExecContext(ctx, upsertArticleSQL,
		a.Link, a.Title, a.Created, a.Author, a.Avatar, fetchedAt); err != nil {
		return fmt.Errorf("upsert article %s: %w", a.Link, err)
	}
	return nil
}

// Stats 统计汇总：朋友总数/活跃数/异常数、文章总数、更新时间。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM friends`).Scan(&st.FriendsNum); err != nil {
		return st, fmt.Errorf("count friends: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM friends WHERE status = ?`, string(model.StatusActive)).Scan(&st.ActiveNum); err != nil {
		return st, fmt.Errorf("count active friends: %w", err)
	}
	st.ErrorNum = st.FriendsNum - st.ActiveNum
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles`).Scan(&st.ArticleNum); err != nil {
		return st, fmt.Errorf("count articles: %w", err)
	}
	st.LastUpdatedTime = timefmt.Now()
	return st, nil
}

// CleanOldPosts 删除 created 早于 days 天前的文章；created 为固定格式字符串，可直接比较。
func (s *SQLite) CleanOldPosts(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	threshold := timefmt.FromTime(time.Now().AddDate(0, 0, -days))
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE created <> '' AND created < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("clean old posts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Archive 在单个事务中写入本轮的朋友状态与文章，无链接的文章跳过。
func (s *SQLite) Archive(ctx context.Context, friends []FriendRow, articles []model.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()
	for _, f := range friends {
		if err := upsertFriend(ctx, tx, f); err != nil {
			return err
		}
	}
	now := time.Now()
	for _, a := range articles {
		if a.Link == "" {
			continue
		}
		if err := upsertArticle(ctx, tx, a, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

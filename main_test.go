package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go-friend-circle/internal/aggregate"
	"go-friend-circle/internal/config"
	"go-friend-circle/internal/model"
	"go-friend-circle/internal/store"
)

func report(names ...string) *aggregate.Report {
	rep := &aggregate.Report{}
	for _, n := range names {
		f := model.Friend{Name: n, Link: "https://" + n + ".example"}
		rep.Friends = append(rep.Friends, f)
		rep.Results = append(rep.Results, model.FriendResult{Name: n, Status: model.StatusActive, FeedURL: f.Link + "/atom.xml"})
		rep.Result.Articles = append(rep.Result.Articles, model.Article{Title: n, Link: f.Link + "/1", Created: "2099-01-01 00:00", Author: n})
	}
	return rep
}

func archivedStats(t *testing.T, dsn string) model.Stats {
	t.Helper()
	st, err := store.OpenSQLite(dsn)
	require.NoError(t, err)
	defer st.Close()
	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	return stats
}

func TestArchive_AccumulatesAcrossRuns(t *testing.T) {
	cfg := &config.Config{Database: config.Database{DSN: filepath.Join(t.TempDir(), "data.db")}}
	ctx := context.Background()
	require.NoError(t, archive(ctx, cfg, report("a", "b")))
	require.NoError(t, archive(ctx, cfg, report("c")))

	stats := archivedStats(t, cfg.Database.DSN)
	require.Equal(t, 3, stats.FriendsNum)
	require.Equal(t, 3, stats.ActiveNum)
	require.Equal(t, 3, stats.ArticleNum)
}

func TestArchive_ResetOnStartClearsPreviousRuns(t *testing.T) {
	cfg := &config.Config{Database: config.Database{DSN: filepath.Join(t.TempDir(), "data.db")}}
	ctx := context.Background()
	require.NoError(t, archive(ctx, cfg, report("a", "b")))

	cfg.ResetOnStart = true
	require.NoError(t, archive(ctx, cfg, report("c")))

	stats := archivedStats(t, cfg.Database.DSN)
	require.Equal(t, 1, stats.FriendsNum)
	require.Equal(t, 1, stats.ArticleNum)
}

func TestFriendRows_MissingResultIsError(t *testing.T) {
	rep := report("a")
	rep.Friends = append(rep.Friends, model.Friend{Name: "panicked", Link: "https://p.example"})
	rows := friendRows(rep)
	require.Len(t, rows, 2)
	require.Equal(t, model.StatusActive, rows[0].Status)
	require.Equal(t, "https://a.example/atom.xml", rows[0].FeedURL)
	require.Equal(t, model.StatusError, rows[1].Status)
	require.Empty(t, rows[1].FeedURL)
}

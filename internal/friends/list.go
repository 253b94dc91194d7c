// 包 friends 负责获取朋友列表：
// - FetchList：抓取 {"friends": [[name, link, avatar], ...]} 文档
// - ParseFriendsPage：依据 rules.yaml 预设的 CSS 选择器解析友链页
// - Merge：按名称去重合并多个来源
package friends

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
)

// listDoc 为朋友列表文档，每个朋友是一个三元数组。
type listDoc struct {
	Friends []json.RawMessage `json:"friends"`
}

// FetchList 抓取并解码朋友列表；抓取失败返回错误（调用方据此中止本轮）。
func FetchList(ctx context.Context, cl *fetch.Client, listURL string) ([]model.Friend, error) {
	var doc listDoc
	if err := cl.GetJSON(ctx, listURL, &doc); err != nil {
		return nil, fmt.Errorf("fetch friend list: %w", err)
	}
	return decodeEntries(doc.Friends), nil
}

// decodeEntries 跳过格式不正确的条目并记录警告，不中止整体流程。
func decodeEntries(raw []json.RawMessage) []model.Friend {
	out := make([]model.Friend, 0, len(raw))
	for _, r := range raw {
		var triple []string
		if err := json.Unmarshal(r, &triple); err != nil || len(triple) < 3 {
			logx.Warnf("friend 数据格式不正确：%s", string(r))
			continue
		}
		name, link := strings.TrimSpace(triple[0]), strings.TrimSpace(triple[1])
		if name == "" || link == "" {
			logx.Warnf("friend 缺少名称或链接：%s", string(r))
			continue
		}
		out = append(out, model.Friend{Name: name, Link: link, Avatar: strings.TrimSpace(triple[2])})
	}
	return out
}

// Merge 按名称去重合并，先出现者优先；名称是缓存与手动配置的键，重复会导致结果互相覆盖。
func Merge(lists ...[]model.Friend) []model.Friend {
	seen := map[string]struct{}{}
	var out []model.Friend
	for _, l := range lists {
		for _, f := range l {
			if f.Name == "" || f.Link == "" {
				logx.Warnf("朋友条目缺少名称或链接，已忽略：%q (%s)", f.Name, f.Link)
				continue
			}
			if _, dup := seen[f.Name]; dup {
				logx.Warnf("重复的朋友名称，已忽略：%s (%s)", f.Name, f.Link)
				continue
			}
			seen[f.Name] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// 包 cache 管理订阅地址缓存：
// - Load/Save：读取与原子写入 [{name,url}] 文件
// - BuildSourceTable：合并缓存与手动配置（手动优先）
// - Reconcile：把各 worker 提交的变更意图合并为新的缓存快照
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"go-friend-circle/internal/fileutil"
	"go-friend-circle/internal/logx"
	"go-friend-circle/internal/model"
)

// Cache 为持久化的 朋友名称 -> 订阅地址 映射。
type Cache map[string]string

// entry 为缓存文件中的一项；来源标记不落盘。
type entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Load 读取缓存文件。文件不存在或内容异常都返回空缓存，只记录日志。
func Load(path string) Cache {
	c := Cache{}
	if path == "" {
		return c
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Infof("缓存文件 %s 不存在，将自动创建", path)
		return c
	}
	if err != nil {
		logx.Warnf("读取缓存文件 %s 失败：%v", path, err)
		return c
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		logx.Warnf("缓存文件 %s 格式异常（应为列表），将忽略：%v", path, err)
		return c
	}
	for _, r := range raw {
		var e entry
		if err := json.Unmarshal(r, &e); err != nil || e.Name == "" || e.URL == "" {
			logx.Warnf("跳过无效缓存条目：%s", string(r))
			continue
		}
		c[e.Name] = e.URL
	}
	return c
}

// Save 将缓存作为完整快照原子写入，条目按名称排序。
func Save(path string, c Cache) error {
	if path == "" {
		return nil
	}
	out := make([]entry, 0, len(c))
	for name, u := range c {
		out = append(out, entry{Name: name, URL: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if err := fileutil.WriteJSON(path, out); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	logx.Infof("缓存已保存到 %s（%d 条）", path, len(out))
	return nil
}

// BuildSourceTable 先放入缓存条目，再用手动条目覆盖同名项；同时返回手动名称集合。
func BuildSourceTable(c Cache, manual []model.SourceEntry) (model.SourceTable, map[string]struct{}) {
	table := make(model.SourceTable, len(c)+len(manual))
	for name, u := range c {
		table[name] = model.SourceEntry{Name: name, FeedURL: u, Origin: model.OriginCache}
	}
	manualNames := make(map[string]struct{}, len(manual))
	for _, m := range manual {
		if m.Name == "" || m.FeedURL == "" {
			continue
		}
		table[m.Name] = model.SourceEntry{Name: m.Name, FeedURL: m.FeedURL, Origin: model.OriginManual}
		manualNames[m.Name] = struct{}{}
	}
	return table, manualNames
}

// Reconcile 在原缓存副本上应用变更意图并返回新缓存，原缓存不被修改。
// 手动条目的变更一律丢弃；同名多次变更以最后一次为准。
func Reconcile(orig Cache, manualNames map[string]struct{}, updates []model.CacheUpdate) Cache {
	next := make(Cache, len(orig))
	for name, u := range orig {
		if _, manual := manualNames[name]; manual {
			continue
		}
		next[name] = u
	}
	latest := make(map[string]model.CacheUpdate, len(updates))
	order := make([]string, 0, len(updates))
	for _, upd := range updates {
		if upd.Name == "" {
			continue
		}
		if _, manual := manualNames[upd.Name]; manual {
			continue
		}
		switch upd.Action {
		case model.ActionSet:
			if upd.URL == "" || upd.URL == "none" {
				continue
			}
		case model.ActionDelete:
		default:
			continue
		}
		if _, seen := latest[upd.Name]; !seen {
			order = append(order, upd.Name)
		}
		latest[upd.Name] = upd
	}
	for _, name := range order {
		upd := latest[name]
		switch upd.Action {
		case model.ActionSet:
			next[name] = upd.URL
			logx.Infof("缓存更新：SET %s -> %s (%s)", name, upd.URL, upd.Reason)
		case model.ActionDelete:
			if _, ok := next[name]; ok {
				delete(next, name)
				logx.Infof("缓存更新：DELETE %s (%s)", name, upd.Reason)
			}
		}
	}
	return next
}

// 包 rules 负责加载并提供友链页解析规则（rules.yaml），
// 以预设名（如 default/butterfly）组织 CSS 选择器；未提供文件时使用内置预设。
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个主题预设的解析规则集合。
type Preset struct {
	FriendsPage *FriendsPage `yaml:"friends_page"`
}

// FriendsPage 描述友链页的选择器：
// - item：每个朋友条目容器
// - name/link/avatar：取文本或属性（支持 a@href / img@src，"||" 回退）
type FriendsPage struct {
	Item   string `yaml:"item"`
	Name   string `yaml:"name"`
	Link   string `yaml:"link"`
	Avatar string `yaml:"avatar"`
}

// Builtin 返回内置预设，覆盖 Butterfly/AnZhiYu 一类主题的友链页结构。
func Builtin() *Rules {
	return &Rules{Presets: map[string]Preset{
		"default": {FriendsPage: &FriendsPage{
			Item:   ".flink-list-item, .friend-item, .link-item",
			Name:   ".flink-item-name||.friend-name||.name||a@title||a",
			Link:   "a@href||@href",
			Avatar: "img@data-lazy-src||img@data-src||img@src",
		}},
		"butterfly": {FriendsPage: &FriendsPage{
			Item:   ".flink-list-item",
			Name:   ".flink-item-name",
			Link:   "a@href",
			Avatar: "img@data-lazy-src||img@src",
		}},
	}}
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets，文件中的预设覆盖同名内置预设
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var presets map[string]Preset
	if err := yaml.Unmarshal(b, &presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	r := Builtin()
	for k, v := range presets {
		r.Presets[k] = v
	}
	return r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	for k, v := range r.Presets {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	for k, v := range r.Presets {
		if strings.EqualFold(k, "default") {
			return v, true
		}
	}
	return Preset{}, false
}

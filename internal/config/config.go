// 包 config 读取 settings.yaml：朋友来源、手动订阅、缓存与输出路径、
// 合并与归档开关、并发/代理及日志选项。Load 之后所有默认值都已填好。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-friend-circle/internal/model"
)

// Config 对应 settings.yaml 的顶层键。
type Config struct {
	LinkSources      []LinkSource   `yaml:"LINK"`
	StaticFriends    []StaticFriend `yaml:"SETTINGS_FRIENDS_LINKS"`
	SpecificRSS      []SpecificRSS  `yaml:"SPECIFIC_RSS"`
	MaxPostsNum      int            `yaml:"MAX_POSTS_NUM"`
	MaxArticles      int            `yaml:"MAX_ARTICLES"`
	CacheFile        string         `yaml:"CACHE_FILE"`
	Output           Output         `yaml:"OUTPUT"`
	Merge            Merge          `yaml:"MERGE_RESULT"`
	OutdateCleanDays int            `yaml:"OUTDATE_CLEAN"`
	SimpleMode       bool           `yaml:"SIMPLE_MODE"`
	ResetOnStart     bool           `yaml:"RESET_ON_START"` // 归档前清空 friends/articles 表
	Database         Database       `yaml:"DATABASE"`
	Concurrency      Concurrency    `yaml:"CONCURRENCY"`
	Proxy            Proxy          `yaml:"PROXY"`
	LogLevel         string         `yaml:"LOG_LEVEL"`
	LogFormat        string         `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale        string         `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor         string         `yaml:"LOG_COLOR"`  // auto|always|never
}

type LinkSource struct {
	// Type：json 为 {"friends": [[name, link, avatar], ...]} 文档；page 为友链页按选择器解析
	Type  string `yaml:"type"` // json|page
	URL   string `yaml:"url"`
	Theme string `yaml:"theme"`
}

type StaticFriend struct {
	Name   string `yaml:"name"`
	Link   string `yaml:"link"`
	Avatar string `yaml:"avatar"`
}

// SpecificRSS 为手动指定的订阅地址，优先级最高，不参与缓存修复。
type SpecificRSS struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Output struct {
	Data   string `yaml:"data"`   // ./all.json
	Errors string `yaml:"errors"` // ./errors.json
}

// Merge：从另一份已发布的结果（<url>/all.json 与 <url>/errors.json）合并数据。
type Merge struct {
	Enable bool   `yaml:"enable"`
	URL    string `yaml:"merge_json_url"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./data.db
}

type Concurrency struct {
	Fetch int `yaml:"fetch"`
	Retry int `yaml:"retry"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 读取并校验配置文件。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	c := new(Config)
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate 检查取值范围并填充默认值，业务代码不再判空。
func (c *Config) Validate() error {
	if c.MaxPostsNum < 0 {
		return errors.New("MAX_POSTS_NUM must be >= 0")
	}
	if c.MaxPostsNum == 0 {
		c.MaxPostsNum = 5
	}
	if c.MaxArticles < 0 {
		return errors.New("MAX_ARTICLES must be >= 0")
	}
	if c.MaxArticles == 0 {
		c.MaxArticles = 150
	}
	if c.OutdateCleanDays < 0 {
		return errors.New("OUTDATE_CLEAN must be >= 0")
	}
	for i, src := range c.LinkSources {
		t := strings.ToLower(strings.TrimSpace(src.Type))
		if t == "" {
			t = "json"
		}
		if t != "json" && t != "page" {
			return fmt.Errorf("LINK[%d]: unsupported type %q", i, src.Type)
		}
		if src.URL == "" {
			return fmt.Errorf("LINK[%d]: url required", i)
		}
		c.LinkSources[i].Type = t
	}
	if c.Merge.Enable && c.Merge.URL == "" {
		return errors.New("MERGE_RESULT.merge_json_url required when enabled")
	}
	if c.CacheFile == "" {
		c.CacheFile = "./cache.json"
	}
	if c.Output.Data == "" {
		c.Output.Data = "./all.json"
	}
	if c.Output.Errors == "" {
		c.Output.Errors = "./errors.json"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data.db"
	}
	if c.Concurrency.Fetch <= 0 {
		c.Concurrency.Fetch = 10
	}
	if c.Concurrency.Retry < 0 {
		c.Concurrency.Retry = 1
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// ManualSources 将 SPECIFIC_RSS 转为手动订阅源，忽略缺字段的条目。
func (c *Config) ManualSources() []model.SourceEntry {
	out := make([]model.SourceEntry, 0, len(c.SpecificRSS))
	for _, s := range c.SpecificRSS {
		if s.Name == "" || s.URL == "" {
			continue
		}
		out = append(out, model.SourceEntry{Name: s.Name, FeedURL: s.URL, Origin: model.OriginManual})
	}
	return out
}

// Friends 返回配置中静态列出的朋友。
func (c *Config) Friends() []model.Friend {
	out := make([]model.Friend, 0, len(c.StaticFriends))
	for _, f := range c.StaticFriends {
		out = append(out, model.Friend{Name: f.Name, Link: f.Link, Avatar: f.Avatar})
	}
	return out
}

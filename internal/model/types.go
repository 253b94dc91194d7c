// 包 model 定义聚合流程中流转的数据模型（朋友/订阅源/文章/单个朋友结果/缓存变更/导出结构）。
package model

// Friend 表示一个友链站点：名称、主页、头像，运行期间只读。
type Friend struct {
	Name   string `json:"name"`
	Link   string `json:"link"`
	Avatar string `json:"avatar"`
}

// Triple 返回 [name, link, avatar]，即 errors.json 中的行格式。
func (f Friend) Triple() []string { return []string{f.Name, f.Link, f.Avatar} }

// Origin 标记订阅地址的来源。
type Origin string

const (
	OriginManual Origin = "manual"
	OriginCache  Origin = "cache"
)

// SourceEntry 为订阅源表中的一项。
type SourceEntry struct {
	Name    string
	FeedURL string
	Origin  Origin
}

// SourceTable 以朋友名称为键；手动条目总是覆盖缓存条目。
type SourceTable map[string]SourceEntry

// Article 为输出中的单篇文章，Created 为 UTC+8 的 "YYYY-MM-DD HH:MM"，未知时为空串。
type Article struct {
	Title   string `json:"title"`
	Created string `json:"created"`
	Link    string `json:"link"`
	Author  string `json:"author"`
	Avatar  string `json:"avatar"`
}

// Status 为单个朋友的处理结果。
type Status string

const (
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// Source 记录本次实际使用的订阅地址来源。
type Source string

const (
	SourceManual Source = "manual"
	SourceCache  Source = "cache"
	SourceAuto   Source = "auto"
	SourceNone   Source = "none"
)

// Action 为缓存变更动作。
type Action string

const (
	ActionSet    Action = "set"
	ActionDelete Action = "delete"
	ActionNone   Action = "none"
)

// Reason 说明缓存变更的原因。
type Reason string

const (
	ReasonAutoDiscovered Reason = "auto_discovered"
	ReasonRepairCache    Reason = "repair_cache"
	ReasonRemoveInvalid  Reason = "remove_invalid"
)

// CacheUpdate 是 worker 提出的缓存变更意图，只有在对账阶段才会生效。
type CacheUpdate struct {
	Action Action `json:"action"`
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

// FriendResult 为单个朋友的处理结果，Status 为 active 当且仅当 Articles 非空。
type FriendResult struct {
	Name        string
	Status      Status
	Articles    []Article
	FeedURL     string
	FeedType    string
	CacheUpdate CacheUpdate
	SourceUsed  Source
}

// Stats 为聚合统计信息，由结果派生。
type Stats struct {
	FriendsNum      int    `json:"friends_num"`
	ActiveNum       int    `json:"active_num"`
	ErrorNum        int    `json:"error_num"`
	ArticleNum      int    `json:"article_num"`
	LastUpdatedTime string `json:"last_updated_time"`
}

// Result 为 all.json 的顶层结构，外部合并数据也使用同一结构。
type Result struct {
	Stats    Stats     `json:"statistical_data"`
	Articles []Article `json:"article_data"`
}

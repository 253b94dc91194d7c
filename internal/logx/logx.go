// 包 logx 是对标准库 slog 的薄封装：
// - 级别/格式/语言/颜色可配置，输出目标可替换（测试中写入缓冲区）
// - pretty 格式为人读的单行输出：时间 [等级] 消息 k=v ...
// - Debugf/Infof/Warnf/Errorf 供流程日志使用；Friend 返回带 friend/url 属性的子日志器，
//   并发处理多个朋友时据此区分输出
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// levelSilent 高于任何实际级别，用于 LOG_LEVEL=none。
const levelSilent slog.Level = 100

// Init 根据 level/format/locale/colorMode 初始化全局日志器，输出到标准输出。
func Init(level, format, locale, colorMode string) {
	InitWriter(os.Stdout, level, format, locale, colorMode)
}

// InitWriter 同 Init，但输出到指定 Writer。
func InitWriter(w io.Writer, level, format, locale, colorMode string) {
	lv := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = NewPrettyHandler(w, lv, locale, colorMode)
	}
	slog.SetDefault(slog.New(h))
}

// Friend 返回附带朋友名称与主页属性的日志器。
func Friend(name, url string) *slog.Logger {
	return slog.Default().With(slog.String("friend", name), slog.String("url", url))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return levelSilent
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// PrettyHandler 输出单行人读日志。WithAttrs 附加的属性在创建时即渲染好，
// 之后每条记录只追加记录自身的属性。
type PrettyHandler struct {
	out    *output
	level  slog.Leveler
	labels *labelSet
	color  bool
	pre    []byte // 已渲染的 " k=v" 序列
	prefix string // 分组前缀，形如 "g1.g2."
}

// output 在派生的 Handler 之间共享，保证并发写入不交错。
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrettyHandler 创建 pretty Handler；locale 以 zh 开头时使用中文等级标签。
func NewPrettyHandler(w io.Writer, lv slog.Leveler, locale string, colorMode string) slog.Handler {
	if w == nil {
		w = os.Stdout
	}
	if lv == nil {
		lv = slog.LevelInfo
	}
	return &PrettyHandler{
		out:    &output{w: w},
		level:  lv,
		labels: labelsFor(locale),
		color:  shouldColor(w, colorMode),
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := h.level.Level()
	return min < levelSilent && l >= min
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf := make([]byte, 0, 128+len(h.pre))
	buf = ts.AppendFormat(buf, "2006-01-02 15:04:05")
	buf = append(buf, ' ')
	label := h.labels.of(r.Level)
	if h.color {
		label = colorize(label, r.Level)
	}
	buf = append(buf, label...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.pre...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := h.out.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := *h
	cp.pre = append([]byte(nil), h.pre...)
	for _, a := range attrs {
		cp.pre = appendAttr(cp.pre, h.prefix, a)
	}
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

// appendAttr 追加 " key=value"；分组属性展开为 "group.key"，含空白的值加引号。
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, p, ga)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"") {
		return strconv.AppendQuote(buf, v)
	}
	return append(buf, v...)
}

// labelSet 为某种语言下的四个等级标签。
type labelSet struct {
	debug, info, warn, err string
}

var (
	zhLabels = &labelSet{"[调试]", "[信息]", "[警告]", "[错误]"}
	enLabels = &labelSet{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"}
)

func labelsFor(locale string) *labelSet {
	if locale == "" || strings.HasPrefix(strings.ToLower(locale), "zh") {
		return zhLabels
	}
	return enLabels
}

func (s *labelSet) of(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return s.debug
	case slog.LevelInfo:
		return s.info
	case slog.LevelWarn:
		return s.warn
	case slog.LevelError:
		return s.err
	}
	return fmt.Sprintf("[L%d]", l)
}

// shouldColor：NO_COLOR 非空时一律关闭；auto 仅在终端上开启。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		fi, err := f.Stat()
		return err == nil && fi.Mode()&os.ModeCharDevice != 0
	}
	return false
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "90",
	slog.LevelInfo:  "36",
	slog.LevelWarn:  "33",
	slog.LevelError: "31",
}

func colorize(s string, l slog.Level) string {
	code, ok := levelColors[l]
	if !ok {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

package feeds

import (
	"net/url"
	"regexp"
	"strings"

	"go-friend-circle/internal/logx"
)

// SanitizeLink 修复订阅中泄露的内网地址：链接主机为 localhost 或点分四段数字时，
// 以 site 为可信域名重写为 https://<site>/<path>?<query>；其他情况原样返回。
// 对已修复的链接再次调用结果不变。
func SanitizeLink(link, site string) string {
	if link == "" || site == "" {
		return link
	}
	lu, err := url.Parse(link)
	if err != nil {
		logx.Warnf("替换链接时出错：%s 错误=%v", link, err)
		return link
	}
	host := lu.Hostname()
	if !isInternalHost(host) {
		return link
	}
	su, err := url.Parse(site)
	if err != nil || su.Host == "" {
		logx.Warnf("替换链接时出错：%s 可信站点无效：%s", link, site)
		return link
	}
	out := *su
	out.Scheme = "https"
	out.Fragment = ""
	out.RawFragment = ""
	out.RawQuery = lu.RawQuery
	out.User = nil
	if strings.EqualFold(lu.Host, su.Host) {
		// 链接已指向可信站点，只强制协议
		out.Path = lu.Path
		out.RawPath = lu.RawPath
		return out.String()
	}
	// 拼接转义形式的路径，%2F 之类的编码保持原样
	raw := strings.TrimRight(su.EscapedPath(), "/") + "/" + strings.TrimLeft(lu.EscapedPath(), "/")
	p, err := url.PathUnescape(raw)
	if err != nil {
		logx.Warnf("替换链接时出错：%s 错误=%v", link, err)
		return link
	}
	out.Path, out.RawPath = p, raw
	return out.String()
}

// dottedQuad 只看形状不校验取值，999.1.1.1 同样视为内网地址。
var dottedQuad = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// isInternalHost 判断主机是否为 localhost 或点分四段数字。
func isInternalHost(host string) bool {
	if host == "" {
		return false
	}
	return strings.Contains(strings.ToLower(host), "localhost") || dottedQuad.MatchString(host)
}

package validator

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// 域名校验正则，覆盖常见情况，不追求 100% 的 RFC 实现
var domainRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// ValidateTarget 校验工具调用的 target 参数。预览阶段就拒绝非法目标，
// 避免把一条根本无法执行的命令摆到用户面前。
// 依次尝试 IP、CIDR、域名、URL 四种解释。
func ValidateTarget(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("target 不能为空")
	}
	if net.ParseIP(value) != nil {
		return nil
	}
	if _, _, err := net.ParseCIDR(value); err == nil {
		return nil
	}
	if domainRegex.MatchString(value) {
		return nil
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		host := strings.TrimPrefix(strings.TrimPrefix(value, "https://"), "http://")
		if i := strings.IndexAny(host, "/:"); i > 0 {
			host = host[:i]
		}
		if net.ParseIP(host) != nil || domainRegex.MatchString(host) {
			return nil
		}
	}
	return fmt.Errorf("'%s' 不是合法的 IP、CIDR、域名或 URL", value)
}

package vectorstore

import (
	"strings"
	"unicode"
)

// maxIdentifierLength 是归一化结果的最大长度，超出部分被截断。
const maxIdentifierLength = 50

// NormalizeIdentifier 把任意租户标识归一化为安全的表名片段。
// 规则：转小写、连续空白折叠为单个下划线、去掉 [a-z0-9_] 之外的字符、
// 截断到 50 个字符，以数字开头时再加一个下划线前缀。
// 纯函数且幂等：同一输入永远得到同一结果。
// 输入为空或归一化后为空（例如全符号输入）时返回 ErrInvalidIdentifier。
func NormalizeIdentifier(raw string) (string, error) {
	if raw == "" {
		return "", wrapErrf(ErrInvalidIdentifier, "输入为空")
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsSpace(r):
			// 空白折叠：只在已有内容之后记一个分隔符
			if b.Len() > 0 {
				pendingSep = true
			}
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		default:
			// 允许集之外的字符直接丢弃
		}
	}

	name := b.String()
	if name == "" {
		return "", wrapErrf(ErrInvalidIdentifier, "归一化后为空: %q", raw)
	}
	if len(name) > maxIdentifierLength {
		name = name[:maxIdentifierLength]
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
		if len(name) > maxIdentifierLength {
			name = name[:maxIdentifierLength]
		}
	}
	return name, nil
}

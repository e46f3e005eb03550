package layout

import (
	"fmt"
	"strings"
)

// CheckPathSafety 对尚未创建的绝对路径做写入前检查.
//
// 文件还不存在，无法做规范化，所以只做文本检查：'..' 可能越过根目录，'=' 与旧的序列化分隔符冲突.
// 通过符号链接等方式绕开文本检查的情况不在防御范围内.
func CheckPathSafety(absPath string, maxLen int) error {
	if strings.Contains(absPath, "..") || strings.Contains(absPath, "=") {
		return fmt.Errorf("%w: %q", ErrSuspiciousPath, absPath)
	}

	if maxLen > 0 && len(absPath) > maxLen {
		return fmt.Errorf("%w: %d > %d", ErrPathTooLong, len(absPath), maxLen)
	}

	return nil
}

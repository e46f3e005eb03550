package layout

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	uuidLength = 36

	// legacyPathLength 根目录之后最长的回退路径，例如 "/00/f7/00f7fd8b-47bd-8c3a-ff91-7804d180cdbc".
	legacyPathLength = 1 + 2 + 1 + 2 + 1 + uuidLength
)

// IsUUID 判断是否为带连字符的 36 位规范 UUID.
func IsUUID(s string) bool {
	if len(s) != uuidLength {
		return false
	}

	_, err := uuid.Parse(s)

	return err == nil
}

// LegacyRelativePath 返回宿主原生布局 uuid[0:2]/uuid[2:4]/uuid.
func LegacyRelativePath(id string) (string, error) {
	if !IsUUID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUUID, id)
	}

	return filepath.Join(id[0:2], id[2:4], id), nil
}

// prefixedLegacyPath 在回退路径前加上非 DICOM 附件前缀（若配置）.
func prefixedLegacyPath(prefix, id string) (string, error) {
	legacy, err := LegacyRelativePath(id)
	if err != nil {
		return "", err
	}

	if prefix == "" {
		return legacy, nil
	}

	return filepath.Join(prefix, legacy), nil
}

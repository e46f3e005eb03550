package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotADirectory 路径中某一级已存在且是普通文件.
var ErrNotADirectory = errors.New("a path segment exists and is not a directory")

// EnsureDirectory 创建目录及其父目录，已存在视为成功.
func EnsureDirectory(dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if err == nil {
		return nil
	}

	// 找到第一个已存在的上级，判断是否被普通文件占用
	for p := dir; p != filepath.Dir(p); p = filepath.Dir(p) {
		info, serr := os.Stat(p)
		if serr != nil {
			continue
		}

		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotADirectory, p)
		}

		break
	}

	if errors.Is(err, fs.ErrExist) {
		return nil
	}

	return fmt.Errorf("failed to create directory %s: %w", dir, err)
}

// RemoveEmptyParentDirectories 从文件所在目录开始逐级删除空目录，遇到根目录或非空目录停止.
// 不在任何根目录之下的路径（采纳的外部文件）不做清理.删除失败静默忽略.
func RemoveEmptyParentDirectories(reg *Registry, path string) {
	if !underRoot(reg, path) {
		return
	}

	dir := filepath.Dir(path)

	for dir != "" && dir != filepath.Dir(dir) && !reg.IsARootPath(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		if err := os.Remove(dir); err != nil {
			return
		}

		dir = filepath.Dir(dir)
	}
}

func underRoot(reg *Registry, path string) bool {
	for dir := filepath.Dir(path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if reg.IsARootPath(dir) {
			return true
		}
	}

	return false
}

// IsRegularFile 判断路径是否为普通文件.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

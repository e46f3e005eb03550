package layout

import "errors"

var (
	// ErrInvalidUUID 不是规范格式的 UUID.
	ErrInvalidUUID = errors.New("invalid uuid")
	// ErrInvalidNamingScheme 命名模板无法保证路径唯一.
	ErrInvalidNamingScheme = errors.New("invalid naming scheme")
	// ErrUnknownStorage 未登记的存储池.
	ErrUnknownStorage = errors.New("unknown storage")
	// ErrNoRootPath 未配置宿主根目录.
	ErrNoRootPath = errors.New("no storage directory defined")
	// ErrInvalidRootPath 根目录不是绝对路径或过长.
	ErrInvalidRootPath = errors.New("invalid root path")
	// ErrMissingVersion 记录缺少版本号.
	ErrMissingVersion = errors.New("no version found")
	// ErrUnknownVersion 记录版本号无法识别.
	ErrUnknownVersion = errors.New("unknown version")
	// ErrAdoptedWithoutPath 非拥有者记录却没有路径.
	ErrAdoptedWithoutPath = errors.New("an adopted file has no path")
	// ErrSuspiciousPath 路径包含 '..' 或 '='.
	ErrSuspiciousPath = errors.New("suspicious path")
	// ErrPathTooLong 路径超过最大长度.
	ErrPathTooLong = errors.New("path too long")
	// ErrUnknownResourceType 未知资源类型.
	ErrUnknownResourceType = errors.New("unknown resource type")
	// ErrUnknownContentType 未知附件类型.
	ErrUnknownContentType = errors.New("unknown content type")
)

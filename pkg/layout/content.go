// Package layout 负责存储布局：命名模板展开、路径安全校验、存储池登记表以及对象位置记录的编解码.
//
// 该包不做任何 I/O（fs.go 中的目录工具除外），所有状态集中在显式传递的 *Registry 中.
package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentType 附件内容类型，数值与宿主服务保持一致.
type ContentType int

const (
	ContentUnknown             ContentType = 0
	ContentDicom               ContentType = 1
	ContentDicomAsJSON         ContentType = 2
	ContentDicomUntilPixelData ContentType = 3
)

// String 返回内容类型名称.
func (c ContentType) String() string {
	switch c {
	case ContentDicom:
		return "dicom"
	case ContentDicomAsJSON:
		return "dicom-as-json"
	case ContentDicomUntilPixelData:
		return "dicom-until-pixel-data"
	default:
		return "unknown"
	}
}

// ParseContentType 解析附件名，接受名称或数值.
func ParseContentType(s string) (ContentType, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return ContentType(n), nil
	}

	switch strings.ToLower(s) {
	case "dicom":
		return ContentDicom, nil
	case "dicom-as-json":
		return ContentDicomAsJSON, nil
	case "dicom-until-pixel-data":
		return ContentDicomUntilPixelData, nil
	default:
		return ContentUnknown, fmt.Errorf("%w: %s", ErrUnknownContentType, s)
	}
}

// Extension 返回内容类型对应的文件扩展名，压缩内容追加 .cmp.
func (c ContentType) Extension(compressed bool) string {
	var ext string

	switch c {
	case ContentDicom:
		ext = ".dcm"
	case ContentDicomUntilPixelData:
		ext = ".dcm.head"
	default:
		ext = ".unk"
	}

	// zlib 加长度前缀，不是真正的 zip 容器
	if compressed {
		ext += ".cmp"
	}

	return ext
}

// CompressionType 压缩类型.
type CompressionType int

const (
	CompressionNone CompressionType = 0
	CompressionZlib CompressionType = 1
)

// ResourceType 资源层级，数值与宿主服务保持一致.
type ResourceType int

const (
	ResourcePatient  ResourceType = 0
	ResourceStudy    ResourceType = 1
	ResourceSeries   ResourceType = 2
	ResourceInstance ResourceType = 3
	ResourceNone     ResourceType = 4
)

// String 返回资源类型名称.
func (r ResourceType) String() string {
	switch r {
	case ResourcePatient:
		return "Patient"
	case ResourceStudy:
		return "Study"
	case ResourceSeries:
		return "Series"
	case ResourceInstance:
		return "Instance"
	default:
		return "None"
	}
}

// URLSegment 返回 REST 路径中的复数段.
func (r ResourceType) URLSegment() (string, error) {
	switch r {
	case ResourcePatient:
		return "patients", nil
	case ResourceStudy:
		return "studies", nil
	case ResourceSeries:
		return "series", nil
	case ResourceInstance:
		return "instances", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownResourceType, int(r))
	}
}

// ParseResourceType 从名称解析资源类型，大小写不敏感.
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "patients":
		return ResourcePatient, nil
	case "study", "studies":
		return ResourceStudy, nil
	case "series":
		return ResourceSeries, nil
	case "instance", "instances":
		return ResourceInstance, nil
	default:
		return ResourceNone, fmt.Errorf("%w: %s", ErrUnknownResourceType, s)
	}
}

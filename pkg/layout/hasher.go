package layout

import (
	"crypto/sha1" //nolint:gosec // 宿主的资源标识由 SHA-1 定义，这里只做兼容计算
	"encoding/hex"
	"strings"
)

// InstanceHasher 由四元组计算宿主服务的层级资源标识.
//
// 每个标识是 SHA-1 的十六进制串，按 8 个字符一组用 '-' 连接成 5 组.
type InstanceHasher struct {
	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
}

// NewInstanceHasher 从标签集合构造 hasher，缺失的标签按空串处理.
func NewInstanceHasher(tags Tags) InstanceHasher {
	return InstanceHasher{
		PatientID:         tags.String(TagPatientID),
		StudyInstanceUID:  tags.String(TagStudyInstanceUID),
		SeriesInstanceUID: tags.String(TagSeriesInstanceUID),
		SOPInstanceUID:    tags.String(TagSOPInstanceUID),
	}
}

// HashPatient 返回患者标识.
func (h InstanceHasher) HashPatient() string {
	return formatHash(h.PatientID)
}

// HashStudy 返回检查标识.
func (h InstanceHasher) HashStudy() string {
	return formatHash(h.PatientID + "|" + h.StudyInstanceUID)
}

// HashSeries 返回序列标识.
func (h InstanceHasher) HashSeries() string {
	return formatHash(h.PatientID + "|" + h.StudyInstanceUID + "|" + h.SeriesInstanceUID)
}

// HashInstance 返回实例标识.
func (h InstanceHasher) HashInstance() string {
	return formatHash(h.PatientID + "|" + h.StudyInstanceUID + "|" + h.SeriesInstanceUID + "|" + h.SOPInstanceUID)
}

func formatHash(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	hexed := hex.EncodeToString(sum[:])

	const group = 8

	parts := make([]string, 0, len(hexed)/group)
	for i := 0; i < len(hexed); i += group {
		parts = append(parts, hexed[i:i+group])
	}

	return strings.Join(parts, "-")
}

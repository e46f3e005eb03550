// Package dicomtest 生成测试用的最小 DICOM Part 10 文件.
package dicomtest

import (
	"bytes"
	"encoding/binary"
)

// Instance 实例的主要标识.
type Instance struct {
	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
}

// Sample 常用的测试实例.
var Sample = Instance{
	PatientID:         "PAT-001",
	StudyInstanceUID:  "1.2.3.4",
	SeriesInstanceUID: "1.2.3.4.5",
	SOPInstanceUID:    "1.2.3.4.5.6",
}

type element struct {
	group, element uint16
	vr             string
	value          string
}

// encode 按显式 VR 小端编码一个短格式元素.
func (e element) encode() []byte {
	v := []byte(e.value)
	if len(v)%2 == 1 {
		pad := byte(' ')
		if e.vr == "UI" {
			pad = 0
		}

		v = append(v, pad)
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, e.group)
	_ = binary.Write(&buf, binary.LittleEndian, e.element)
	buf.WriteString(e.vr)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(v)))
	buf.Write(v)

	return buf.Bytes()
}

// Build 生成显式 VR 小端的 DICOM 文件，带 0002 组长度.
func Build(in Instance) []byte {
	meta := []element{
		{0x0002, 0x0002, "UI", "1.2.840.10008.5.1.4.1.1.7"},
		{0x0002, 0x0003, "UI", in.SOPInstanceUID},
		{0x0002, 0x0010, "UI", "1.2.840.10008.1.2.1"},
	}

	var metaBody bytes.Buffer
	for _, e := range meta {
		metaBody.Write(e.encode())
	}

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")

	// (0002,0000) UL 组长度
	_ = binary.Write(&out, binary.LittleEndian, uint16(0x0002))
	_ = binary.Write(&out, binary.LittleEndian, uint16(0x0000))
	out.WriteString("UL")
	_ = binary.Write(&out, binary.LittleEndian, uint16(4))
	_ = binary.Write(&out, binary.LittleEndian, uint32(metaBody.Len()))
	out.Write(metaBody.Bytes())

	dataset := []element{
		{0x0008, 0x0016, "UI", "1.2.840.10008.5.1.4.1.1.7"},
		{0x0008, 0x0018, "UI", in.SOPInstanceUID},
		{0x0008, 0x0020, "DA", "20240131"},
		{0x0010, 0x0010, "PN", "DOE^JOHN"},
		{0x0010, 0x0020, "LO", in.PatientID},
		{0x0020, 0x000D, "UI", in.StudyInstanceUID},
		{0x0020, 0x000E, "UI", in.SeriesInstanceUID},
		{0x0020, 0x0011, "IS", "3"},
		{0x0020, 0x0013, "IS", "12"},
	}

	for _, e := range dataset {
		out.Write(e.encode())
	}

	return out.Bytes()
}

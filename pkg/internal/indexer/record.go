package indexer

import (
	"fmt"

	"github.com/bytedance/sonic"
)

const indexedPathVersion = 1

// IndexedPath 索引器对单个文件的记录.
type IndexedPath struct {
	Time          int64 // 修改时间（unix 秒）
	Size          int64
	IsDicom       bool
	DeletedByHost bool // 宿主已通过 DELETE 删除了对应资源
}

type indexedPathWire struct {
	V *int  `json:"v"`
	D bool  `json:"d"`
	S int64 `json:"s"`
	T int64 `json:"t"`
	R bool  `json:"r"`
}

// Marshal 序列化为 {"v":1,"d":..,"s":..,"t":..,"r":..}.
func (p IndexedPath) Marshal() ([]byte, error) {
	v := indexedPathVersion

	return sonic.Marshal(indexedPathWire{V: &v, D: p.IsDicom, S: p.Size, T: p.Time, R: p.DeletedByHost})
}

// ParseIndexedPath 解析索引记录.
func ParseIndexedPath(data []byte) (IndexedPath, error) {
	var w indexedPathWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return IndexedPath{}, fmt.Errorf("invalid indexed path: %w", err)
	}

	if w.V == nil || *w.V != indexedPathVersion {
		return IndexedPath{}, fmt.Errorf("invalid indexed path version: %v", versionOf(w.V))
	}

	return IndexedPath{Time: w.T, Size: w.S, IsDicom: w.D, DeletedByHost: w.R}, nil
}

// HasChanged 修改时间或大小变化.
func (p IndexedPath) HasChanged(mtime, size int64) bool {
	return p.Time != mtime || p.Size != size
}

func versionOf(v *int) any {
	if v == nil {
		return "missing"
	}

	return *v
}

package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

const recordVersion = 1

// Record 单个附件的存储位置记录，序列化后作为宿主附件的自定义数据保存.
type Record struct {
	isOwner   bool
	storageID string
	path      string
	uuid      string
	adopted   bool
	fallback  string
}

// 路径回退原因.
const (
	FallbackTooLong    = "too_long"
	FallbackSuspicious = "suspicious"
)

type recordWire struct {
	V int    `json:"v"`
	O bool   `json:"o"`
	S string `json:"s,omitempty"`
	P string `json:"p,omitempty"`
}

type recordParse struct {
	V *int    `json:"v"`
	O *bool   `json:"o"`
	S *string `json:"s"`
	P *string `json:"p"`
}

// CreateForWriting 为新写入的对象生成记录.
//
// 绝对路径可疑（含 ".." 或 "="）或超长时回退到 前缀/回退路径，记录告警后继续.
func CreateForWriting(reg *Registry, id, relativePath string) (Record, error) {
	rec := Record{
		isOwner:   true,
		storageID: reg.CurrentWriteStorageID(),
		path:      relativePath,
		uuid:      id,
	}

	root, err := reg.CurrentWriteRootPath()
	if err != nil {
		return Record{}, err
	}

	target := relativePath
	if target == "" {
		if target, err = LegacyRelativePath(id); err != nil {
			return Record{}, err
		}
	}

	abs := joinRaw(root, target)

	err = CheckPathSafety(abs, reg.MaxPathLength())
	if err == nil {
		return rec, nil
	}

	fallback, ferr := prefixedLegacyPath(reg.OtherAttachmentsPrefix(), id)
	if ferr != nil {
		return Record{}, ferr
	}

	rec.path = fallback
	logger := reg.Logger()

	code := "WAS02"
	msg := "path is suspicious since it contains '..' or '='"
	rec.fallback = FallbackSuspicious

	if !errors.Is(err, ErrSuspiciousPath) {
		code = "WAS01"
		msg = "path is too long"
		rec.fallback = FallbackTooLong
	}

	logger.Warn().
		Str("code", code).
		Str("path", abs).
		Str("fallback", joinRaw(root, fallback)).
		Msg(msg)

	return rec, nil
}

// CreateForAdoption 为采纳的外部文件生成记录，路径为绝对路径.
func CreateForAdoption(absPath string, takeOwnership bool) Record {
	return Record{
		isOwner: takeOwnership,
		path:    absPath,
		adopted: true,
	}
}

// CreateForMoveStorage 复制记录，只更换存储池.
func CreateForMoveStorage(cur Record, targetStorageID string) Record {
	return Record{
		isOwner:   cur.isOwner,
		storageID: targetStorageID,
		path:      cur.path,
		uuid:      cur.uuid,
		adopted:   cur.adopted,
	}
}

// ParseRecord 解析附件自定义数据，空数据表示回退布局下的自有文件.
func ParseRecord(id string, data []byte) (Record, error) {
	rec := Record{isOwner: true, uuid: id}

	if len(data) == 0 {
		return rec, nil
	}

	var w recordParse
	if err := sonic.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("failed to parse location record of %s: %w", id, err)
	}

	if w.V == nil {
		return Record{}, fmt.Errorf("%w: attachment %s", ErrMissingVersion, id)
	}

	if *w.V != recordVersion {
		return Record{}, fmt.Errorf("%w: attachment %s has version %d", ErrUnknownVersion, id, *w.V)
	}

	rec.isOwner = w.O != nil && *w.O

	if !rec.isOwner && (w.P == nil || *w.P == "") {
		return Record{}, fmt.Errorf("%w: attachment %s", ErrAdoptedWithoutPath, id)
	}

	if w.P != nil {
		rec.path = *w.P
		rec.adopted = filepath.IsAbs(rec.path)
	}

	if w.S != nil {
		rec.storageID = *w.S
	}

	return rec, nil
}

// Marshal 序列化记录.默认方案、单存储池、非采纳且路径就是回退路径时输出为空，行为与宿主原生布局一致.
// 默认方案下写入时发生了带前缀的回退，路径与回退布局不同，此时也写入路径.
func (r Record) Marshal(reg *Registry) ([]byte, error) {
	defaultScheme := reg.IsDefaultNamingScheme()
	custom := r.hasCustomPath()

	if defaultScheme && !reg.IsMultipleStoragesEnabled() && !r.adopted && !custom {
		return nil, nil
	}

	w := recordWire{V: recordVersion, O: r.isOwner}

	if r.isOwner && !r.adopted && r.storageID != "" {
		w.S = r.storageID
	}

	if !defaultScheme || r.adopted || custom {
		w.P = r.path
	}

	return sonic.Marshal(w)
}

// hasCustomPath 路径非空且不同于 uuid 的回退路径.
func (r Record) hasCustomPath() bool {
	if r.path == "" {
		return false
	}

	legacy, err := LegacyRelativePath(r.uuid)

	return err != nil || r.path != legacy
}

// AbsolutePath 解析记录对应的绝对路径.
func (r Record) AbsolutePath(reg *Registry) (string, error) {
	if filepath.IsAbs(r.path) {
		return r.path, nil
	}

	var (
		root string
		err  error
	)

	if r.storageID != "" {
		root, err = reg.StorageRootPath(r.storageID)
	} else {
		root, err = reg.CoreRootPath()
	}

	if err != nil {
		return "", err
	}

	if r.path != "" {
		return filepath.Join(root, r.path), nil
	}

	legacy, err := LegacyRelativePath(r.uuid)
	if err != nil {
		return "", err
	}

	return filepath.Join(root, legacy), nil
}

func (r Record) IsOwner() bool { return r.isOwner }

func (r Record) StorageID() string { return r.storageID }

func (r Record) Path() string { return r.path }

func (r Record) UUID() string { return r.uuid }

func (r Record) IsAdopted() bool { return r.adopted }

// Fallback 返回写入时路径回退的原因，未回退时为空.
func (r Record) Fallback() string { return r.fallback }

// HasAbsolutePath 采纳的文件保存绝对路径，不能在存储池之间移动.
func (r Record) HasAbsolutePath() bool { return filepath.IsAbs(r.path) }

// joinRaw 拼接路径但不做清理，保留 ".." 供检查.
func joinRaw(root, rel string) string {
	if rel == "" {
		return root
	}

	return strings.TrimRight(root, string(filepath.Separator)) + string(filepath.Separator) + rel
}

package layout

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/configs"
)

// DefaultMaxPathLength 绝对路径的默认长度上限.
const DefaultMaxPathLength = 256

// Registry 存储位置注册表：核心根目录、存储池、当前写入池与命名配置.
//
// 启动时写入，之后只读；读取都持有读锁.
type Registry struct {
	mu sync.RWMutex

	coreRoot       string
	roots          map[string]string
	currentWriteID string

	maxPathLength int
	otherPrefix   string
	namingScheme  string
	overwrite     bool

	logger zerolog.Logger
}

// NewRegistry 创建空注册表，命名方案为默认方案.
func NewRegistry() *Registry {
	return &Registry{
		roots:         make(map[string]string),
		maxPathLength: DefaultMaxPathLength,
		namingScheme:  DefaultNamingScheme,
		logger:        zerolog.Nop(),
	}
}

// NewRegistryFromConfig 按配置构建注册表并校验.任何失败都应终止启动.
func NewRegistryFromConfig(cfg configs.AdvancedStorageConfig, host configs.HostConfig) (*Registry, error) {
	reg := NewRegistry()

	if cfg.MaxPathLength > 0 {
		reg.SetMaxPathLength(cfg.MaxPathLength)
	}

	scheme := cfg.NamingScheme
	if scheme == "" {
		scheme = DefaultNamingScheme
	}

	if err := reg.SetNamingScheme(scheme, host.OverwriteInstances); err != nil {
		return nil, err
	}

	reg.SetOtherAttachmentsPrefix(cfg.OtherAttachmentsPrefix)

	if err := reg.checkRoot(host.StorageDirectory); err != nil {
		return nil, fmt.Errorf("storage directory: %w", err)
	}

	reg.SetCoreRootPath(host.StorageDirectory)

	for _, pool := range cfg.MultipleStorages.Storages {
		if pool.ID == "" {
			return nil, fmt.Errorf("%w: storage without id", ErrInvalidRootPath)
		}

		if err := reg.checkRoot(pool.Path); err != nil {
			return nil, fmt.Errorf("storage %q: %w", pool.ID, err)
		}

		reg.SetStorageRootPath(pool.ID, pool.Path)
	}

	if len(cfg.MultipleStorages.Storages) > 0 || cfg.MultipleStorages.CurrentWriteStorage != "" {
		if err := reg.SetCurrentWriteStorageID(cfg.MultipleStorages.CurrentWriteStorage); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// checkRoot 根目录必须是绝对路径，并给回退路径留出长度.
func (r *Registry) checkRoot(root string) error {
	if !filepath.IsAbs(root) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidRootPath, root)
	}

	if len(root) > r.MaxPathLength()-legacyPathLength {
		return fmt.Errorf("%w: %q is too long for a maximum path length of %d", ErrInvalidRootPath, root, r.MaxPathLength())
	}

	return nil
}

// SetLogger 设置路径回退告警使用的日志.
func (r *Registry) SetLogger(l zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger = l
}

// Logger 返回注册表日志.
func (r *Registry) Logger() *zerolog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l := r.logger

	return &l
}

func (r *Registry) SetStorageRootPath(id, root string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roots[id] = root
}

// SetCurrentWriteStorageID 选择新对象写入的存储池.
func (r *Registry) SetCurrentWriteStorageID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roots[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStorage, id)
	}

	r.currentWriteID = id

	return nil
}

func (r *Registry) SetCoreRootPath(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.coreRoot = root
}

func (r *Registry) SetMaxPathLength(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxPathLength = n
}

func (r *Registry) SetOtherAttachmentsPrefix(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.otherPrefix = p
}

// SetNamingScheme 校验并设置命名方案.
func (r *Registry) SetNamingScheme(scheme string, overwriteInstances bool) error {
	if err := ValidateNamingScheme(scheme, overwriteInstances); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.namingScheme = scheme
	r.overwrite = overwriteInstances

	return nil
}

// StorageRootPath 返回存储池根目录.
func (r *Registry) StorageRootPath(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.roots[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStorage, id)
	}

	return root, nil
}

// CoreRootPath 返回宿主默认存储目录.
func (r *Registry) CoreRootPath() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.coreRoot == "" {
		return "", ErrNoRootPath
	}

	return r.coreRoot, nil
}

func (r *Registry) CurrentWriteStorageID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.currentWriteID
}

// CurrentWriteRootPath 返回当前写入池根目录，未启用多存储时为核心根目录.
func (r *Registry) CurrentWriteRootPath() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.currentWriteID != "" {
		if root, ok := r.roots[r.currentWriteID]; ok {
			return root, nil
		}
	}

	if r.coreRoot == "" {
		return "", ErrNoRootPath
	}

	return r.coreRoot, nil
}

// IsARootPath 判断路径是否为某个根目录（核心或存储池），清理空目录时不能越过它.
func (r *Registry) IsARootPath(p string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p = filepath.Clean(p)

	if r.coreRoot != "" && filepath.Clean(r.coreRoot) == p {
		return true
	}

	for _, root := range r.roots {
		if filepath.Clean(root) == p {
			return true
		}
	}

	return false
}

func (r *Registry) HasStorage(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roots[id]

	return ok
}

// StorageIDs 返回排序后的存储池 id.
func (r *Registry) StorageIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.roots))
	for id := range r.roots {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (r *Registry) IsMultipleStoragesEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.roots) > 0 && r.currentWriteID != ""
}

func (r *Registry) IsDefaultNamingScheme() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namingScheme == DefaultNamingScheme
}

func (r *Registry) MaxPathLength() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.maxPathLength
}

func (r *Registry) OtherAttachmentsPrefix() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.otherPrefix
}

func (r *Registry) NamingScheme() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namingScheme
}

func (r *Registry) OverwriteInstances() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.overwrite
}

// RelativePathFor 计算新对象的相对路径；默认方案下返回空串，由回退布局决定位置.
func (r *Registry) RelativePathFor(tags Tags, id string, ct ContentType, compressed bool) (string, error) {
	if r.IsDefaultNamingScheme() {
		if !IsUUID(id) {
			return "", fmt.Errorf("%w: %q", ErrInvalidUUID, id)
		}

		return "", nil
	}

	return RelativePath(r.NamingScheme(), tags, id, ct, compressed, r.OtherAttachmentsPrefix())
}

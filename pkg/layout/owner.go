package layout

import (
	"fmt"

	"github.com/bytedance/sonic"
)

const pathOwnerVersion = 1

// PathOwner 记录采纳文件归属于哪个宿主资源，删除时按它还原 REST 路径.
type PathOwner struct {
	ResourceID   string
	ResourceType ResourceType
	ContentType  ContentType
}

type pathOwnerWire struct {
	V *int         `json:"v"`
	R string       `json:"r"`
	T ResourceType `json:"t"`
	C ContentType  `json:"c"`
}

// NewPathOwner 创建归属记录.
func NewPathOwner(resourceID string, rt ResourceType, ct ContentType) PathOwner {
	return PathOwner{ResourceID: resourceID, ResourceType: rt, ContentType: ct}
}

// Marshal 序列化为 {"v":1,"r":id,"t":type,"c":content}.
func (o PathOwner) Marshal() ([]byte, error) {
	v := pathOwnerVersion

	return sonic.Marshal(pathOwnerWire{V: &v, R: o.ResourceID, T: o.ResourceType, C: o.ContentType})
}

// ParsePathOwner 解析归属记录.
func ParsePathOwner(data []byte) (PathOwner, error) {
	var w pathOwnerWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return PathOwner{}, fmt.Errorf("failed to parse path owner: %w", err)
	}

	if w.V == nil {
		return PathOwner{}, fmt.Errorf("%w: path owner", ErrMissingVersion)
	}

	if *w.V != pathOwnerVersion {
		return PathOwner{}, fmt.Errorf("%w: path owner version %d", ErrUnknownVersion, *w.V)
	}

	return PathOwner{ResourceID: w.R, ResourceType: w.T, ContentType: w.C}, nil
}

// URLForDeletion 返回删除该资源（或其附件）的 REST 路径.
func (o PathOwner) URLForDeletion() (string, error) {
	seg, err := o.ResourceType.URLSegment()
	if err != nil {
		return "", err
	}

	url := "/" + seg + "/" + o.ResourceID

	if o.ContentType != ContentDicom {
		url += fmt.Sprintf("/attachments/%d", int(o.ContentType))
	}

	return url, nil
}

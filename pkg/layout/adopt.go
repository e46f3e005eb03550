package layout

// StoreStatus 宿主存储实例的结果，数值与宿主服务保持一致.
type StoreStatus int

const (
	StoreSuccess       StoreStatus = 0
	StoreAlreadyStored StoreStatus = 1
	StoreFailure       StoreStatus = 2
	StoreFilteredOut   StoreStatus = 3
	StoreStorageFull   StoreStatus = 4
	StoreUnknown       StoreStatus = 5
)

// String 返回状态名称.
func (s StoreStatus) String() string {
	switch s {
	case StoreSuccess:
		return "Success"
	case StoreAlreadyStored:
		return "AlreadyStored"
	case StoreFilteredOut:
		return "FilteredOut"
	case StoreStorageFull:
		return "StorageFull"
	case StoreFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// AdoptResult 采纳外部文件的结果.
type AdoptResult struct {
	InstanceID     string
	AttachmentUUID string
	Status         StoreStatus
}

package storage

import (
	"fmt"
	"sort"
)

type StorageType string

const (
	Local StorageType = "local"
	MinDB StorageType = "mindb"
	S3    StorageType = "s3"
	GCS   StorageType = "gcs"
)

type storageFn func(Options) (Storage, error)

type storageCtx struct {
	labels []string
	fn     storageFn
}

var factory = make(map[StorageType]storageCtx)

// Register 由各后端在 init() 中调用，labels 是可选别名
func Register(st StorageType, fn storageFn, labels ...string) {
	if _, ok := factory[st]; ok {
		return
	}
	factory[st] = storageCtx{
		fn:     fn,
		labels: labels,
	}
}

func Create(storeType StorageType, opts Options) (Storage, error) {
	if fn, ok := factory[storeType]; ok {
		return fn.fn(opts)
	}
	return nil, fmt.Errorf("unsupported storage type: %s", storeType)
}

// CreateByLabel 先按类型查找，再按别名查找
func CreateByLabel(label string, opts Options) (Storage, error) {
	if fn, ok := factory[StorageType(label)]; ok {
		return fn.fn(opts)
	}
	for _, fn := range factory {
		for _, l := range fn.labels {
			if l == label {
				return fn.fn(opts)
			}
		}
	}
	return nil, fmt.Errorf("storage not found for label: %s (registered: %v)", label, Registered())
}

func Registered() []string {
	names := make([]string, 0, len(factory))
	for st := range factory {
		names = append(names, string(st))
	}
	sort.Strings(names)
	return names
}

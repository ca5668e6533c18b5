package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics 进程内计数器，供 /metrics JSON 端点使用
type Metrics struct {
	RequestCount   int64
	BrowseCount    int64
	UploadCount    int64
	DeleteCount    int64
	RenameCount    int64
	MkdirCount     int64
	ErrorCount     int64
	ResponseTime   int64
	ActiveRequests int64
}

var GlobalMetrics = &Metrics{}

func IncrementRequests() {
	atomic.AddInt64(&GlobalMetrics.RequestCount, 1)
}

func IncrementBrowses() {
	atomic.AddInt64(&GlobalMetrics.BrowseCount, 1)
}

func IncrementUploads() {
	atomic.AddInt64(&GlobalMetrics.UploadCount, 1)
}

func IncrementDeletes() {
	atomic.AddInt64(&GlobalMetrics.DeleteCount, 1)
}

func IncrementRenames() {
	atomic.AddInt64(&GlobalMetrics.RenameCount, 1)
}

func IncrementMkdirs() {
	atomic.AddInt64(&GlobalMetrics.MkdirCount, 1)
}

func IncrementErrors() {
	atomic.AddInt64(&GlobalMetrics.ErrorCount, 1)
}

func RecordResponseTime(duration time.Duration) {
	atomic.StoreInt64(&GlobalMetrics.ResponseTime, duration.Milliseconds())
}

func IncrementActiveRequests() {
	atomic.AddInt64(&GlobalMetrics.ActiveRequests, 1)
}

func DecrementActiveRequests() {
	atomic.AddInt64(&GlobalMetrics.ActiveRequests, -1)
}

func GetMetrics() Metrics {
	return Metrics{
		RequestCount:   atomic.LoadInt64(&GlobalMetrics.RequestCount),
		BrowseCount:    atomic.LoadInt64(&GlobalMetrics.BrowseCount),
		UploadCount:    atomic.LoadInt64(&GlobalMetrics.UploadCount),
		DeleteCount:    atomic.LoadInt64(&GlobalMetrics.DeleteCount),
		RenameCount:    atomic.LoadInt64(&GlobalMetrics.RenameCount),
		MkdirCount:     atomic.LoadInt64(&GlobalMetrics.MkdirCount),
		ErrorCount:     atomic.LoadInt64(&GlobalMetrics.ErrorCount),
		ResponseTime:   atomic.LoadInt64(&GlobalMetrics.ResponseTime),
		ActiveRequests: atomic.LoadInt64(&GlobalMetrics.ActiveRequests),
	}
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/valyala/fasthttp"
)

func TestCounters(t *testing.T) {
	before := GetMetrics()

	IncrementBrowses()
	IncrementUploads()
	IncrementActiveRequests()
	DecrementActiveRequests()
	RecordResponseTime(1500 * time.Millisecond)

	after := GetMetrics()
	if after.BrowseCount != before.BrowseCount+1 || after.UploadCount != before.UploadCount+1 {
		t.Errorf("counters not incremented: %+v -> %+v", before, after)
	}
	if after.ActiveRequests != before.ActiveRequests {
		t.Errorf("active requests = %d, expected %d", after.ActiveRequests, before.ActiveRequests)
	}
	if after.ResponseTime != 1500 {
		t.Errorf("response time = %d", after.ResponseTime)
	}
}

func TestRecordMutation(t *testing.T) {
	ok := testutil.ToFloat64(mutationsTotal.WithLabelValues("mkdir", "success"))
	failed := testutil.ToFloat64(mutationsTotal.WithLabelValues("mkdir", "error"))

	RecordMutation("mkdir", true)
	RecordMutation("mkdir", false)
	RecordMutation("mkdir", false)

	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("mkdir", "success")); got != ok+1 {
		t.Errorf("success = %v, expected %v", got, ok+1)
	}
	if got := testutil.ToFloat64(mutationsTotal.WithLabelValues("mkdir", "error")); got != failed+2 {
		t.Errorf("error = %v, expected %v", got, failed+2)
	}
}

func TestHandler(t *testing.T) {
	RecordStorageOperation("local", "save", time.Millisecond, true)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics/prometheus")
	Handler()(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if !strings.Contains(string(ctx.Response.Body()), "filebrowser_storage_operations_total") {
		t.Errorf("storage metric missing from exposition")
	}
}

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordImageOp(t *testing.T) {
	ok := testutil.ToFloat64(ImageStoreOps.WithLabelValues("delete", "ok"))
	failed := testutil.ToFloat64(ImageStoreOps.WithLabelValues("delete", "error"))

	RecordImageOp("delete", nil)
	RecordImageOp("delete", errors.New("boom"))
	RecordImageOp("delete", errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(ImageStoreOps.WithLabelValues("delete", "ok")))
	assert.Equal(t, failed+2, testutil.ToFloat64(ImageStoreOps.WithLabelValues("delete", "error")))
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("/articles/", "GET", "200"))

	RecordRequest("/articles/", "GET", "200", 0.01)

	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("/articles/", "GET", "200")))
}

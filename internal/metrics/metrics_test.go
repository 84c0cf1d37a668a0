package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})

	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) }, "double registration on one registry")
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordAPIRequest(true)
	c.RecordAPIRequest(true)
	c.RecordAPIRequest(false)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiRequestsSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiRequestsFailure))

	c.RecordBatch(true, 0.1)
	c.RecordBatch(false, 0.2)
	c.RecordBatch(false, 0.3)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transformSuccess))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.transformFailure))

	c.RecordDBInserts(10)
	c.RecordDBInsertFailure()
	assert.Equal(t, 10.0, testutil.ToFloat64(c.dbInsertSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dbInsertFailure))

	c.RecordTransformationError()
	c.RecordAppStart()
	c.RecordServiceError()
	c.RecordDBConnection()
	c.RecordDatalakeWrite()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transformationErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.appStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.serviceErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dbConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.datalakeWrites))

	c.SetOutstanding(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(c.outstandingBatches))
}

func TestCollector_PerKind(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordSinkWrite("user", 10)
	c.RecordSinkWrite("company", 3)
	c.RecordSinkWrite("user", 0)
	c.RecordSinkFailure("company")

	assert.Equal(t, 10.0, testutil.ToFloat64(c.rowsWritten.WithLabelValues("user")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.rowsWritten.WithLabelValues("company")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sinkWriteFailures.WithLabelValues("company")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.sinkWriteFailures.WithLabelValues("user")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAppStart()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "app_starts_total 1")
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", StatusClass(200))
	require.Equal(t, "4xx", StatusClass(404))
	require.Equal(t, "5xx", StatusClass(503))
	require.Equal(t, "error", StatusClass(0))
}

func TestAPI_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAPI(reg)

	m.Observe("list_comments", 200, 10*time.Millisecond)
	m.Observe("list_comments", 200, 20*time.Millisecond)
	m.Observe("delete_comment", 404, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("list_comments", "2xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("delete_comment", "4xx")))
}

func TestAPI_NilIsNoop(t *testing.T) {
	var m *API
	m.Observe("list_comments", 200, time.Millisecond)
}

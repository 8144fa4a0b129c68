package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IndexBuilt("/ws", 3)
		m.ForgetWorkspace("/ws")
		m.Probe(true)
		m.Render(nil)
		m.DecorationPass()
	})
}

func TestMetrics(t *testing.T) {
	m := New()

	m.IndexBuilt("/ws", 3)
	m.IndexBuilt("/ws", 5)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.indexBuilds))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.indexedIcons.WithLabelValues("/ws")))

	m.Probe(true)
	m.Probe(false)
	m.Probe(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues("miss")))

	m.Render(nil)
	m.Render(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("error")))

	m.ForgetWorkspace("/ws")
	assert.Equal(t, 0, testutil.CollectAndCount(m.indexedIcons))
}

func TestHandler(t *testing.T) {
	m := New()
	m.DecorationPass()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "iconify_lsp_decoration_passes_total 1")
}

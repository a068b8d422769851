package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruian/internal/metrics"
)

var _ metrics.Backend = (*Backend)(nil)

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	assert.Nil(t, labelsToTags(nil))
	assert.Equal(t,
		[]string{"job:ruian", "status:success", "step:parse"},
		labelsToTags(metrics.Labels{"step": "parse", "job": "ruian", "status": "success"}))
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(Config{})
	assert.Error(t, err)
}

func TestBackend_ZeroValueIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.RecordsTotal, 1, nil)
		b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	})
	assert.NoError(t, b.Flush())
}

// TestBackend_SendsOverUDP reads the DogStatsD datagrams the client flushes
// on Close.
func TestBackend_SendsOverUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "ruian.", GlobalTags: []string{"env:test"}})
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "parsed"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"step": "parse"})
	require.NoError(t, b.Flush())

	var got strings.Builder
	buf := make([]byte, 64<<10)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !strings.Contains(got.String(), "step_duration") || !strings.Contains(got.String(), "records_total") {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			break
		}
		got.Write(buf[:n])
	}

	out := got.String()
	assert.Contains(t, out, "ruian.ruian_records_total:3|c|#env:test,kind:parsed")
	assert.Contains(t, out, "ruian.ruian_step_duration_seconds:0.25|h|#env:test,step:parse")
}

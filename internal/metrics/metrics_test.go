package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegister(reg) })
}

func TestObserveNetworkRequest(t *testing.T) {
	before := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("openalex", "works", "error"))
	ObserveNetworkRequest("openalex", "works", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("openalex", "works", "error"))
	assert.Equal(t, before+1, after)
}

func TestObserveLLMGeneration_DefaultsModel(t *testing.T) {
	before := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("unknown"))
	ObserveLLMGeneration("", time.Second, 42)
	assert.Equal(t, before+42, testutil.ToFloat64(LLMTokensTotal.WithLabelValues("unknown")))
}

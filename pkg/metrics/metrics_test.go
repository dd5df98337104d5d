package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { MustRegister(reg) })
	assert.Panics(t, func() { MustRegister(reg) })
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(GrantedCoinsTotal.WithLabelValues("streak"))
	GrantedCoinsTotal.WithLabelValues("streak").Add(15)
	assert.Equal(t, before+15, testutil.ToFloat64(GrantedCoinsTotal.WithLabelValues("streak")))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

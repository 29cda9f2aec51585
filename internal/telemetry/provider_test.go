package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()

	res, err := newResource(cfg)
	require.NoError(t, err)
	require.NotNil(t, res)

	// Resource should contain service name attribute
	var foundServiceName bool
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" {
			assert.Equal(t, cfg.ServiceName, attr.Value.AsString())
			foundServiceName = true
		}
	}
	assert.True(t, foundServiceName, "service.name attribute not found")
}

func TestNewMeterProvider_MetricsDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false

	res, err := newResource(cfg)
	require.NoError(t, err)

	mp, err := newMeterProvider(context.Background(), cfg, res)
	require.NoError(t, err)
	assert.Nil(t, mp)
}

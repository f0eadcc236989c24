package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{URL: "http://127.0.0.1:8080/schedule", OutputPath: "out.png"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultReadySel, o.ReadySelector)
	assert.Equal(t, 30*time.Second, o.Timeout)

	o, err = Options{URL: "u", OutputPath: "p", Width: 800, Height: 200, Timeout: time.Second}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 200, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestSnapshotPNGRequiresTarget(t *testing.T) {
	assert.ErrorContains(t, SnapshotPNG(context.Background(), Options{OutputPath: "x.png"}), "URL is required")
	assert.ErrorContains(t, SnapshotPNG(context.Background(), Options{URL: "http://x"}), "OutputPath is required")
}

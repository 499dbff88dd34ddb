package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebPQREncoder_Encode(t *testing.T) {
	enc, err := NewWebPQREncoder("medium", 4)
	require.NoError(t, err)

	payload, err := enc.Encode("https://shop.example/x")
	require.NoError(t, err)
	require.Greater(t, len(payload), 12)
	assert.Equal(t, "RIFF", string(payload[0:4]))
	assert.Equal(t, "WEBP", string(payload[8:12]))
}

func TestNewWebPQREncoder_Invalid(t *testing.T) {
	_, err := NewWebPQREncoder("extreme", 10)
	assert.Error(t, err)

	_, err = NewWebPQREncoder("low", 0)
	assert.Error(t, err)
}

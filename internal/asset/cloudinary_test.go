package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudinaryHostRequiresCredentials(t *testing.T) {
	_, err := NewCloudinaryHost("", "key", "secret")
	assert.Error(t, err)
}

func TestCloudinaryTransformURL(t *testing.T) {
	host, err := NewCloudinaryHost("demo", "key", "secret")
	require.NoError(t, err)

	u, err := host.TransformURL("ai-generated/street", "e_gen_remove:prompt_car")
	require.NoError(t, err)

	assert.Contains(t, u, "https://")
	assert.Contains(t, u, "demo")
	assert.Contains(t, u, "e_gen_remove:prompt_car")
	assert.Contains(t, u, "ai-generated/street")
}

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackDigest(t *testing.T) {
	digest := CallbackDigest("corr-1", "secret")

	assert.True(t, VerifyCallbackDigest("corr-1", digest, "secret"))

	// Any deviation in input, digest, or secret fails verification.
	assert.False(t, VerifyCallbackDigest("corr-2", digest, "secret"))
	assert.False(t, VerifyCallbackDigest("corr-1", digest, "other-secret"))
	assert.False(t, VerifyCallbackDigest("corr-1", digest[:len(digest)-1]+"0", "secret"))
	assert.False(t, VerifyCallbackDigest("corr-1", "", "secret"))
}

func TestCallbackDigestIsDeterministic(t *testing.T) {
	assert.Equal(t, CallbackDigest("corr-1", "secret"), CallbackDigest("corr-1", "secret"))
	assert.NotEqual(t, CallbackDigest("corr-1", "secret"), CallbackDigest("corr-1", "secret2"))
}

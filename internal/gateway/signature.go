package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CallbackDigest computes the shared-secret digest the gateway attaches to
// asynchronous callbacks for a correlation id.
func CallbackDigest(correlationID, sharedSecret string) string {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write([]byte(correlationID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackDigest checks a callback digest in constant time.
func VerifyCallbackDigest(correlationID, digest, sharedSecret string) bool {
	expected := CallbackDigest(correlationID, sharedSecret)
	return hmac.Equal([]byte(expected), []byte(digest))
}

package healer

import (
	"crypto/rand"
	"encoding/hex"
)

// NewToolUseID returns a fresh cryptographically random tool_use id of the
// form "toolu_" + 16 lowercase hex characters. The gateway is stateless
// per-request, so a random source trivially satisfies "unique within one
// response" without threading a position counter through every call site.
func NewToolUseID() string {
	return "toolu_" + randomHex()
}

// NewMessageID returns a fresh message id of the form "msg_" + 16 lowercase
// hex characters, using the same random source as NewToolUseID.
func NewMessageID() string {
	return "msg_" + randomHex()
}

func randomHex() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("healer: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

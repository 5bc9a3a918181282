package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	in := map[string]interface{}{
		"username": "alice",
		"password": "hunter22",
		"auth": map[string]interface{}{
			"access_token": "abc",
			"scope":        "all",
		},
		"registrationId": "fcm-token",
	}

	out := Redact(in)

	assert.Equal(t, "alice", out["username"])
	assert.Equal(t, "[REDACTED]", out["password"])
	assert.Equal(t, "[REDACTED]", out["registrationId"])
	nested := out["auth"].(map[string]interface{})
	assert.Equal(t, "[REDACTED]", nested["access_token"])
	assert.Equal(t, "all", nested["scope"])
	assert.Equal(t, "hunter22", in["password"], "input must not be mutated")
}

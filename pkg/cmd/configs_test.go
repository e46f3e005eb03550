package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRedact 测试嵌套结构与列表中的敏感字段被遮盖.
func TestRedact(t *testing.T) {
	tree := map[string]any{
		"KV": map[string]any{
			"Redis": map[string]any{"Addr": "localhost:6379", "Password": "secret"},
			"NATS":  map[string]any{"Password": ""},
		},
		"MQ": map[string]any{
			"NATS": map[string]any{"JWT": "eyJ", "NKey": "SU"},
		},
		"Pools": []any{map[string]any{"ID": "Fast", "AccessToken": "t"}},
	}

	redact(tree)

	kv := tree["KV"].(map[string]any)
	assert.Equal(t, "******", kv["Redis"].(map[string]any)["Password"])
	assert.Equal(t, "localhost:6379", kv["Redis"].(map[string]any)["Addr"])
	assert.Equal(t, "", kv["NATS"].(map[string]any)["Password"])

	nats := tree["MQ"].(map[string]any)["NATS"].(map[string]any)
	assert.Equal(t, "******", nats["JWT"])
	assert.Equal(t, "******", nats["NKey"])

	pool := tree["Pools"].([]any)[0].(map[string]any)
	assert.Equal(t, "Fast", pool["ID"])
	assert.Equal(t, "******", pool["AccessToken"])
}

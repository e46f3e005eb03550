package mq

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisEnvelope 测试 UUID 与元数据经过 pub/sub 后保留.
func TestRedisEnvelope(t *testing.T) {
	in := message.NewMessage("0e5d0c7a-6f5e-4a53-9d39-1f3b8a2d9c11", []byte(`{"uuid":"a"}`))
	in.Metadata.Set("topic", "advst.file.adopted")
	in.Metadata.Set("trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")

	raw, err := encodeEnvelope(in)
	require.NoError(t, err)

	out := decodeEnvelope(string(raw))
	assert.Equal(t, in.UUID, out.UUID)
	assert.Equal(t, in.Payload, out.Payload)
	assert.Equal(t, "advst.file.adopted", out.Metadata.Get("topic"))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out.Metadata.Get("trace_id"))

	// 其他进程直接 PUBLISH 的原始内容
	plain := decodeEnvelope("hello")
	assert.Equal(t, []byte("hello"), plain.Payload)
	assert.NotEmpty(t, plain.UUID)
}

package kv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

// 不支持单键过期的后端（nats）在值前加一个定长头：魔数 + 过期时间（unix 毫秒，大端）.
// 没有 TTL 的值原样保存，索引记录这类大值不额外占空间.
var ttlMagic = []byte("ASTTL2")

const ttlHeaderLen = 6 + 8

var errTTLHeader = errors.New("kv: truncated ttl header")

// encodeWithTTL ttl<=0 时原样返回.
func encodeWithTTL(value []byte, ttl time.Duration) []byte {
	if ttl <= 0 {
		return value
	}

	out := make([]byte, ttlHeaderLen+len(value))
	copy(out, ttlMagic)
	binary.BigEndian.PutUint64(out[len(ttlMagic):], uint64(time.Now().Add(ttl).UnixMilli()))
	copy(out[ttlHeaderLen:], value)

	return out
}

// decodeWithTTL 去掉 TTL 头，expired 表示值已经过期.
func decodeWithTTL(b []byte, now time.Time) (value []byte, expired bool, err error) {
	if !bytes.HasPrefix(b, ttlMagic) {
		return b, false, nil
	}

	if len(b) < ttlHeaderLen {
		return nil, false, errTTLHeader
	}

	expireAt := int64(binary.BigEndian.Uint64(b[len(ttlMagic):ttlHeaderLen]))
	if now.UnixMilli() >= expireAt {
		return nil, true, nil
	}

	return b[ttlHeaderLen:], false, nil
}

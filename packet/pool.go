package packet

import (
	"bytes"
	"sync"
)

const (
	// CONNECT/CONNACK/DISCONNECT都是小报文, 按典型大小预分配
	initialBufferSize = 256
	// 超过此容量的buffer直接丢弃, 避免一个大报文长期占用内存
	maxPooledCap = 64 * 1024
)

var buffers = sync.Pool{
	New: func() any { return bytes.NewBuffer(make([]byte, 0, initialBufferSize)) },
}

// GetBuffer 返回一个空buffer, 用完后调用 PutBuffer 归还
func GetBuffer() *bytes.Buffer {
	return buffers.Get().(*bytes.Buffer)
}

func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledCap {
		return
	}
	buf.Reset()
	buffers.Put(buf)
}

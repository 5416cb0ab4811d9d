package packet

import (
	"bytes"
	"io"
)

// Packet 定义了MQTT控制报文的通用接口
//
// 参考章节 2.1 Structure of an MQTT Control Packet
// 每个MQTT控制报文都包含固定报头, 可变报头和载荷视报文类型而定.
// v5.0在可变报头中增加了属性(Properties)
type Packet interface {
	// Kind 返回报文类型, 位置: 固定报头第1字节的bits 7-4
	Kind() byte

	// Unpack 从缓冲区解析固定报头之后的内容
	Unpack(*bytes.Buffer) error

	// Pack 将完整报文(包括固定报头)写入w
	Pack(io.Writer) error
}

// Unpack 从读取器解析一个MQTT控制报文
//
// 这里只需要处理建立连接的握手: CONNECT, CONNACK和DISCONNECT.
// 其他报文类型返回 ErrMalformedPacket
func Unpack(version byte, r io.Reader) (Packet, error) {
	fixed := &FixedHeader{Version: version}
	if err := fixed.Unpack(r); err != nil {
		return nil, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	n, err := buf.ReadFrom(io.LimitReader(r, int64(fixed.RemainingLength)))
	if err != nil {
		return nil, err
	}
	if n != int64(fixed.RemainingLength) {
		return nil, io.ErrUnexpectedEOF
	}

	var pkt Packet
	switch fixed.Kind {
	case 0x1:
		pkt = &CONNECT{FixedHeader: fixed}
	case 0x2:
		pkt = &CONNACK{FixedHeader: fixed}
	case 0xE:
		pkt = &DISCONNECT{FixedHeader: fixed}
	default:
		return nil, ErrMalformedPacket
	}
	return pkt, pkt.Unpack(buf)
}

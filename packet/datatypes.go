package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	VERSION310 byte = 0x3
	VERSION311 byte = 0x4
	VERSION500 byte = 0x5

	maxVarInt = 0xFFFFFFF // 268435455, 剩余长度可编码的最大值
	maxUTF8   = 0xFFFF
)

// Kind Control packet types. Position: byte 1, bits 7-4
var Kind = map[byte]string{
	0x0: "[0x0]RESERVED",
	0x1: "[0x1]CONNECT",
	0x2: "[0x2]CONNACK",
	0x3: "[0x3]PUBLISH",
	0x4: "[0x4]PUBACK",
	0x5: "[0x5]PUBREC",
	0x6: "[0x6]PUBREL",
	0x7: "[0x7]PUBCOMP",
	0x8: "[0x8]SUBSCRIBE",
	0x9: "[0x9]SUBACK",
	0xA: "[0xA]UNSUBSCRIBE",
	0xB: "[0xB]UNSUBACK",
	0xC: "[0xC]PINGREQ",
	0xD: "[0xD]PINGRESP",
	0xE: "[0xE]DISCONNECT",
	0xF: "[0xF]AUTH",
}

// protocolName 3.1使用"MQIsdp", 3.1.1和5.0使用"MQTT"
func protocolName(version byte) string {
	if version == VERSION310 {
		return "MQIsdp"
	}
	return "MQTT"
}

// encodeLength 变长字节整数编码, 参考章节 1.5.5 Variable Byte Integer
func encodeLength[T ~uint32 | ~int | ~int64](v T) ([]byte, error) {
	if v < 0 || int64(v) > maxVarInt {
		return nil, ErrPacketTooLarge
	}
	n := uint32(v)
	result := make([]byte, 0, 4)
	for {
		enc := byte(n % 128)
		n /= 128
		if n > 0 {
			enc |= 128
		}
		result = append(result, enc)
		if n == 0 {
			return result, nil
		}
	}
}

func decodeLength(r io.Reader) (uint32, error) {
	var vbi uint32
	b := make([]byte, 1)
	for shift := 0; ; shift += 7 {
		if shift > 21 {
			return 0, ErrMalformedVariableByteInteger
		}
		if _, err := io.ReadFull(r, b); err != nil {
			return 0, err
		}
		vbi |= uint32(b[0]&127) << shift
		if b[0]&128 == 0 {
			return vbi, nil
		}
	}
}

func i2b(i uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, i)
	return b
}

func i4b(i uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, i)
	return b
}

// encodeUTF8 两字节长度前缀 + 内容. 调用方保证长度不超过65535
func encodeUTF8[T []byte | string](v T) []byte {
	b := make([]byte, 2, len(v)+2)
	binary.BigEndian.PutUint16(b, uint16(len(v)))
	return append(b, v...)
}

// decodeUTF8 读取带长度前缀的字符串或二进制数据. 返回的数据不引用b的底层数组
func decodeUTF8[T []byte | string](b *bytes.Buffer) (T, error) {
	var zero T
	if b.Len() < 2 {
		return zero, ErrMalformedOffsetBytesOutOfRange
	}
	n := int(binary.BigEndian.Uint16(b.Next(2)))
	if b.Len() < n {
		return zero, ErrMalformedOffsetBytesOutOfRange
	}
	return T(append([]byte(nil), b.Next(n)...)), nil
}

func readByte(b *bytes.Buffer) (byte, error) {
	c, err := b.ReadByte()
	if err != nil {
		return 0, ErrMalformedOffsetByteOutOfRange
	}
	return c, nil
}

func readUint16(b *bytes.Buffer) (uint16, error) {
	if b.Len() < 2 {
		return 0, ErrMalformedOffsetUintOutOfRange
	}
	return binary.BigEndian.Uint16(b.Next(2)), nil
}

func readUint32(b *bytes.Buffer) (uint32, error) {
	if b.Len() < 4 {
		return 0, ErrMalformedOffsetUintOutOfRange
	}
	return binary.BigEndian.Uint32(b.Next(4)), nil
}

func b2i(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

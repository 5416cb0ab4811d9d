package packet

import "fmt"

// ReasonCode MQTT原因码
// 参考: MQTT v3.1.1 章节 3.2.2.3 CONNACK Return code, MQTT v5.0 章节 2.4 Reason Code
type ReasonCode struct {
	Code   uint8
	Reason string
}

func (rc ReasonCode) Error() string {
	return fmt.Sprintf("%d:%s", rc.Code, rc.Reason)
}

var (
	CodeSuccess = ReasonCode{Code: 0x00, Reason: "success"}

	// MQTT v3.1.1 CONNACK返回码
	Err3UnsupportedProtocolVersion = ReasonCode{Code: 0x01, Reason: "unsupported protocol version"}
	Err3ClientIdentifierNotValid   = ReasonCode{Code: 0x02, Reason: "client identifier not valid"}
	Err3ServerUnavailable          = ReasonCode{Code: 0x03, Reason: "server unavailable"}
	Err3BadUsernameOrPassword      = ReasonCode{Code: 0x04, Reason: "bad username or password"}
	Err3NotAuthorized              = ReasonCode{Code: 0x05, Reason: "not authorized"}

	ErrUnspecifiedError = ReasonCode{Code: 0x80, Reason: "unspecified error"}

	// 0x81 报文格式错误
	ErrMalformedPacket                = ReasonCode{Code: 0x81, Reason: "malformed packet"}
	ErrMalformedProtocolName          = ReasonCode{Code: 0x81, Reason: "malformed packet: protocol name"}
	ErrMalformedProtocolVersion       = ReasonCode{Code: 0x81, Reason: "malformed packet: protocol version"}
	ErrMalformedFlags                 = ReasonCode{Code: 0x81, Reason: "malformed packet: flags"}
	ErrMalformedWillTopic             = ReasonCode{Code: 0x81, Reason: "malformed packet: will topic"}
	ErrMalformedPassword              = ReasonCode{Code: 0x81, Reason: "malformed packet: password"}
	ErrMalformedOffsetUintOutOfRange  = ReasonCode{Code: 0x81, Reason: "malformed packet: offset uint out of range"}
	ErrMalformedOffsetBytesOutOfRange = ReasonCode{Code: 0x81, Reason: "malformed packet: offset bytes out of range"}
	ErrMalformedOffsetByteOutOfRange  = ReasonCode{Code: 0x81, Reason: "malformed packet: offset byte out of range"}
	ErrMalformedVariableByteInteger   = ReasonCode{Code: 0x81, Reason: "malformed packet: variable byte integer out of range"}
	ErrMalformedBadProperty           = ReasonCode{Code: 0x81, Reason: "malformed packet: unknown property"}
	ErrMalformedProperties            = ReasonCode{Code: 0x81, Reason: "malformed packet: properties"}
	ErrMalformedStringTooLong         = ReasonCode{Code: 0x81, Reason: "malformed packet: string longer than 65535 bytes"}

	// 0x82 协议错误
	ErrProtocolErr                            = ReasonCode{Code: 0x82, Reason: "protocol error"}
	ErrProtocolViolationQosOutOfRange         = ReasonCode{Code: 0x82, Reason: "protocol violation: qos out of range"}
	ErrProtocolViolationWillFlagSurplusRetain = ReasonCode{Code: 0x82, Reason: "protocol violation: will flag surplus retain"}
	ErrProtocolViolationDuplicateProperty     = ReasonCode{Code: 0x82, Reason: "protocol violation: duplicate property"}

	ErrImplementationSpecificError = ReasonCode{Code: 0x83, Reason: "implementation specific error"}
	ErrUnsupportedProtocolVersion  = ReasonCode{Code: 0x84, Reason: "unsupported protocol version"}
	ErrClientIdentifierNotValid    = ReasonCode{Code: 0x85, Reason: "client identifier not valid"}
	ErrBadUsernameOrPassword       = ReasonCode{Code: 0x86, Reason: "bad username or password"}
	ErrNotAuthorized               = ReasonCode{Code: 0x87, Reason: "not authorized"}
	ErrServerUnavailable           = ReasonCode{Code: 0x88, Reason: "server unavailable"}
	ErrServerBusy                  = ReasonCode{Code: 0x89, Reason: "server busy"}
	ErrBanned                      = ReasonCode{Code: 0x8A, Reason: "banned"}
	ErrBadAuthenticationMethod     = ReasonCode{Code: 0x8C, Reason: "bad authentication method"}
	ErrTopicNameInvalid            = ReasonCode{Code: 0x90, Reason: "topic name invalid"}
	ErrPacketTooLarge              = ReasonCode{Code: 0x95, Reason: "packet too large"}
	ErrQuotaExceeded               = ReasonCode{Code: 0x97, Reason: "quota exceeded"}
	ErrPayloadFormatInvalid        = ReasonCode{Code: 0x99, Reason: "payload format invalid"}
	ErrRetainNotSupported          = ReasonCode{Code: 0x9A, Reason: "retain not supported"}
	ErrQosNotSupported             = ReasonCode{Code: 0x9B, Reason: "qos not supported"}
	ErrUseAnotherServer            = ReasonCode{Code: 0x9C, Reason: "use another server"}
	ErrServerMoved                 = ReasonCode{Code: 0x9D, Reason: "server moved"}
	ErrConnectionRateExceeded      = ReasonCode{Code: 0x9F, Reason: "connection rate exceeded"}
)

// connack3 v3.1.1 CONNACK返回码, connack5 v5.0 CONNACK原因码
var (
	connack3 = codeTable(Err3UnsupportedProtocolVersion, Err3ClientIdentifierNotValid, Err3ServerUnavailable,
		Err3BadUsernameOrPassword, Err3NotAuthorized)
	connack5 = codeTable(ErrUnspecifiedError, ErrMalformedPacket, ErrProtocolErr, ErrImplementationSpecificError,
		ErrUnsupportedProtocolVersion, ErrClientIdentifierNotValid, ErrBadUsernameOrPassword, ErrNotAuthorized,
		ErrServerUnavailable, ErrServerBusy, ErrBanned, ErrBadAuthenticationMethod, ErrTopicNameInvalid,
		ErrPacketTooLarge, ErrQuotaExceeded, ErrPayloadFormatInvalid, ErrRetainNotSupported, ErrQosNotSupported,
		ErrUseAnotherServer, ErrServerMoved, ErrConnectionRateExceeded)
)

func codeTable(codes ...ReasonCode) map[uint8]ReasonCode {
	m := make(map[uint8]ReasonCode, len(codes))
	for _, c := range codes {
		m[c.Code] = c
	}
	return m
}

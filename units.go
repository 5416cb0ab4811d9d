package wsprofile

import (
	"fmt"
	"math"
	"time"
)

// Unit tags a numeric field with its time or size granularity.
type Unit string

const (
	MILLISECONDS Unit = "MILLISECONDS"
	SECONDS      Unit = "SECONDS"
	MINUTES      Unit = "MINUTES"
	HOURS        Unit = "HOURS"

	BYTE     Unit = "BYTE"
	KILOBYTE Unit = "KILOBYTE"
	MEGABYTE Unit = "MEGABYTE"
)

// Family names a group of unit-qualified fields sharing one table of maxima.
type Family uint8

const (
	KeepAlive Family = iota + 1
	SessionExpiryInterval
	MaxPacketSize
	ConnectTimeout
	ReconnectPeriod
	MessageExpiryInterval
	WillDelayInterval
)

var familyNames = map[Family]string{
	KeepAlive:             "keepAlive",
	SessionExpiryInterval: "sessionExpiryInterval",
	MaxPacketSize:         "maxPacketSize",
	ConnectTimeout:        "connectTimeout",
	ReconnectPeriod:       "reconnectPeriod",
	MessageExpiryInterval: "msgExpiryInterval",
	WillDelayInterval:     "willDelayInterval",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// scale is the number of base units (milliseconds or bytes) in one unit.
var (
	timeScale = map[Unit]uint64{MILLISECONDS: 1, SECONDS: 1000, MINUTES: 60 * 1000, HOURS: 60 * 60 * 1000}
	sizeScale = map[Unit]uint64{BYTE: 1, KILOBYTE: 1024, MEGABYTE: 1024 * 1024}
)

type table struct {
	scale map[Unit]uint64
	max   map[Unit]uint64 // nil: bounded only by overflow
}

// four byte integer seconds, shared by session expiry, message expiry and will delay.
var fourByteSeconds = map[Unit]uint64{
	MILLISECONDS: 4294967295000,
	SECONDS:      4294967295,
	MINUTES:      71582788,
	HOURS:        1193046,
}

var tables = map[Family]table{
	KeepAlive: {scale: timeScale, max: map[Unit]uint64{
		MILLISECONDS: 65535000,
		SECONDS:      65535,
		MINUTES:      1092,
		HOURS:        18,
	}},
	SessionExpiryInterval: {scale: timeScale, max: fourByteSeconds},
	MessageExpiryInterval: {scale: timeScale, max: fourByteSeconds},
	WillDelayInterval:     {scale: timeScale, max: fourByteSeconds},
	MaxPacketSize: {scale: sizeScale, max: map[Unit]uint64{
		BYTE:     268435456,
		KILOBYTE: 262144,
		MEGABYTE: 256,
	}},
	ConnectTimeout:  {scale: timeScale},
	ReconnectPeriod: {scale: timeScale},
}

func lookup(f Family, u Unit) (table, uint64, error) {
	t, ok := tables[f]
	if !ok {
		return t, 0, fmt.Errorf("%w: %s", ErrUnknownFamily, f)
	}
	s, ok := t.scale[u]
	if !ok {
		return t, 0, fmt.Errorf("%w: %q for %s", ErrUnknownUnit, u, f)
	}
	return t, s, nil
}

// Max returns the inclusive maximum raw value of family f expressed in unit u.
func Max(f Family, u Unit) (uint64, error) {
	t, s, err := lookup(f, u)
	if err != nil {
		return 0, err
	}
	if t.max == nil {
		return math.MaxUint64 / s, nil
	}
	return t.max[u], nil
}

// Check reports ErrOutOfRange when v exceeds the maximum of its unit. Values are never clamped.
func Check(f Family, v uint64, u Unit) error {
	m, err := Max(f, u)
	if err != nil {
		return err
	}
	if v > m {
		return fmt.Errorf("%w: %s %d %s exceeds %d", ErrOutOfRange, f, v, u, m)
	}
	return nil
}

// Convert rescales v from one unit of family f to another.
// It fails with ErrLossyConversion instead of rounding.
func Convert(f Family, v uint64, from, to Unit) (uint64, error) {
	_, sf, err := lookup(f, from)
	if err != nil {
		return 0, err
	}
	_, st, err := lookup(f, to)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint64/sf {
		return 0, fmt.Errorf("%w: %s %d %s overflows", ErrOutOfRange, f, v, from)
	}
	base := v * sf
	if base%st != 0 {
		return 0, fmt.Errorf("%w: %s %d %s to %s", ErrLossyConversion, f, v, from, to)
	}
	return base / st, nil
}

// UnitField is a numeric value paired with its unit.
type UnitField struct {
	Value uint64 `json:"value"`
	Unit  Unit   `json:"unit"`
}

// In returns the field expressed in unit u.
func (uf UnitField) In(f Family, u Unit) (uint64, error) {
	return Convert(f, uf.Value, uf.Unit, u)
}

// Duration converts a time field into a time.Duration.
func (uf UnitField) Duration(f Family) (time.Duration, error) {
	ms, err := uf.In(f, MILLISECONDS)
	if err != nil {
		return 0, err
	}
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, fmt.Errorf("%w: %s %d ms", ErrOutOfRange, f, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

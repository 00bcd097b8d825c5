package calibration

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	// Magic identifies a calibration record.
	Magic uint16 = 0xCAFE
	// FormatVersion is bumped whenever the record layout changes. Records with
	// any other version are rejected, never migrated.
	FormatVersion uint8 = 1
	// MaxSensors sizes the bound arrays in the record.
	MaxSensors = 16
	// ADCMax is the largest raw reading a 12-bit ADC can produce.
	ADCMax = 4095

	// RecordSize is the packed size of a Record in bytes.
	RecordSize = offMinimum + 4*MaxSensors + 4

	offMagic       = 0
	offVersion     = 2
	offSensorCount = 3
	offMinimum     = 4
	offMaximum     = offMinimum + 2*MaxSensors
	offChecksum    = offMaximum + 2*MaxSensors
)

// Bounds holds per-sensor raw calibration limits. Index i of Minimum and
// Maximum belongs to sensor i.
type Bounds struct {
	Minimum []uint16
	Maximum []uint16
}

// NewBounds allocates zeroed bounds for n sensors.
func NewBounds(n int) Bounds {
	return Bounds{Minimum: make([]uint16, n), Maximum: make([]uint16, n)}
}

func (b Bounds) holds(n int) bool {
	return len(b.Minimum) >= n && len(b.Maximum) >= n
}

// Record is the persisted calibration entity.
//
// Wire layout, little-endian, no padding:
//
//	0       magic        uint16
//	2       version      uint8
//	3       sensorCount  uint8
//	4       minimum      uint16 x MaxSensors
//	4+2N    maximum      uint16 x MaxSensors
//	4+4N    checksum     uint32
type Record struct {
	Magic       uint16
	Version     uint8
	SensorCount uint8
	Minimum     [MaxSensors]uint16
	Maximum     [MaxSensors]uint16
	Checksum    uint32
}

// NewRecord builds a checksummed record for the first sensorCount entries of
// b. Unused slots stay zero so the checksum does not depend on history.
// sensorCount outside 1..MaxSensors yields InvalidSensorCount and bounds
// shorter than sensorCount yield NullPointer.
func NewRecord(sensorCount int, b Bounds) (Record, error) {
	if sensorCount < 1 || sensorCount > MaxSensors {
		return Record{}, InvalidSensorCount
	}
	if !b.holds(sensorCount) {
		return Record{}, NullPointer
	}
	r := Record{Magic: Magic, Version: FormatVersion, SensorCount: uint8(sensorCount)}
	for i := 0; i < sensorCount; i++ {
		r.Minimum[i] = b.Minimum[i]
		r.Maximum[i] = b.Maximum[i]
	}
	r.Checksum = Checksum(r)
	return r, nil
}

// MarshalBinary packs r into RecordSize bytes. It never fails.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	r.put(buf)
	return buf, nil
}

func (r Record) put(buf []byte) {
	binary.LittleEndian.PutUint16(buf[offMagic:], r.Magic)
	buf[offVersion] = r.Version
	buf[offSensorCount] = r.SensorCount
	for i := 0; i < MaxSensors; i++ {
		binary.LittleEndian.PutUint16(buf[offMinimum+2*i:], r.Minimum[i])
		binary.LittleEndian.PutUint16(buf[offMaximum+2*i:], r.Maximum[i])
	}
	binary.LittleEndian.PutUint32(buf[offChecksum:], r.Checksum)
}

// UnmarshalBinary decodes a packed record. Extra trailing bytes are ignored.
func (r *Record) UnmarshalBinary(buf []byte) error {
	if len(buf) < RecordSize {
		return fmt.Errorf("calibration: record needs %d bytes, got %d", RecordSize, len(buf))
	}
	r.Magic = binary.LittleEndian.Uint16(buf[offMagic:])
	r.Version = buf[offVersion]
	r.SensorCount = buf[offSensorCount]
	for i := 0; i < MaxSensors; i++ {
		r.Minimum[i] = binary.LittleEndian.Uint16(buf[offMinimum+2*i:])
		r.Maximum[i] = binary.LittleEndian.Uint16(buf[offMaximum+2*i:])
	}
	r.Checksum = binary.LittleEndian.Uint32(buf[offChecksum:])
	return nil
}

// Checksum digests every field except Checksum: each value is added to the
// running sum, which is then rotated left by one bit.
func Checksum(r Record) uint32 {
	var sum uint32
	step := func(v uint32) {
		sum = bits.RotateLeft32(sum+v, 1)
	}
	step(uint32(r.Magic))
	step(uint32(r.Version))
	step(uint32(r.SensorCount))
	for i := 0; i < MaxSensors; i++ {
		step(uint32(r.Minimum[i]))
		step(uint32(r.Maximum[i]))
	}
	return sum
}

package calibration

import (
	"encoding/binary"
	"errors"
	"testing"
)

func uniformBounds(n int, lo, hi uint16) Bounds {
	b := NewBounds(n)
	for i := 0; i < n; i++ {
		b.Minimum[i] = lo
		b.Maximum[i] = hi
	}
	return b
}

func mustRecord(t *testing.T, n int, b Bounds) Record {
	t.Helper()
	r, err := NewRecord(n, b)
	if err != nil {
		t.Fatalf("NewRecord(%d): %v", n, err)
	}
	return r
}

func TestRecordSize(t *testing.T) {
	if RecordSize != 72 {
		t.Fatalf("RecordSize=%d want 72", RecordSize)
	}
}

func TestRecordMarshal_Layout(t *testing.T) {
	b := NewBounds(MaxSensors)
	b.Minimum[0], b.Maximum[0] = 0x0102, 0x0A0B
	b.Minimum[15], b.Maximum[15] = 0x0304, 0x0C0D
	r := mustRecord(t, MaxSensors, b)

	buf, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != RecordSize {
		t.Fatalf("len=%d want %d", len(buf), RecordSize)
	}
	if buf[0] != 0xFE || buf[1] != 0xCA {
		t.Fatalf("magic bytes=% X want FE CA", buf[0:2])
	}
	if buf[2] != FormatVersion || buf[3] != MaxSensors {
		t.Fatalf("version=%d count=%d", buf[2], buf[3])
	}
	if got := binary.LittleEndian.Uint16(buf[4:]); got != 0x0102 {
		t.Fatalf("minimum[0]=0x%04X", got)
	}
	if got := binary.LittleEndian.Uint16(buf[4+2*15:]); got != 0x0304 {
		t.Fatalf("minimum[15]=0x%04X", got)
	}
	if got := binary.LittleEndian.Uint16(buf[36:]); got != 0x0A0B {
		t.Fatalf("maximum[0]=0x%04X", got)
	}
	if got := binary.LittleEndian.Uint16(buf[36+2*15:]); got != 0x0C0D {
		t.Fatalf("maximum[15]=0x%04X", got)
	}
	if got := binary.LittleEndian.Uint32(buf[68:]); got != r.Checksum {
		t.Fatalf("checksum=0x%08X want 0x%08X", got, r.Checksum)
	}

	var back Record
	if err := back.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if back != r {
		t.Fatalf("decoded record differs:\n got %+v\nwant %+v", back, r)
	}
}

func TestRecordUnmarshal_Short(t *testing.T) {
	var r Record
	if err := r.UnmarshalBinary(make([]byte, RecordSize-1)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestChecksum_KnownValue(t *testing.T) {
	r := Record{Magic: Magic, Version: 1}
	// 0xCAFE rotl 1 = 0x195FC, +1 rotl 1 = 0x32BFA, rotl 1 = 0x657F4, then
	// 32 zero steps rotate a full turn.
	if got := Checksum(r); got != 0x000657F4 {
		t.Fatalf("Checksum=0x%08X want 0x000657F4", got)
	}
}

func TestChecksum_IgnoresChecksumField(t *testing.T) {
	r := mustRecord(t, 4, uniformBounds(4, 10, 20))
	c := r
	c.Checksum = 0xDEADBEEF
	if Checksum(r) != Checksum(c) {
		t.Fatalf("checksum depends on its own field")
	}
}

func TestNewRecord_ZeroFillsUnusedSlots(t *testing.T) {
	b := uniformBounds(MaxSensors, 100, 3000)
	r := mustRecord(t, 4, b)
	for i := 4; i < MaxSensors; i++ {
		if r.Minimum[i] != 0 || r.Maximum[i] != 0 {
			t.Fatalf("slot %d min=%d max=%d want zero", i, r.Minimum[i], r.Maximum[i])
		}
	}
	if r != mustRecord(t, 4, uniformBounds(4, 100, 3000)) {
		t.Fatalf("record depends on bounds beyond the sensor count")
	}
}

func TestNewRecord_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		count int
		b     Bounds
		want  ErrorCode
	}{
		{"ShortBounds", 8, NewBounds(4), NullPointer},
		{"ShortMaximum", 4, Bounds{Minimum: make([]uint16, 4), Maximum: make([]uint16, 2)}, NullPointer},
		{"NilBounds", 1, Bounds{}, NullPointer},
		{"ZeroCount", 0, NewBounds(4), InvalidSensorCount},
		{"TooMany", MaxSensors + 1, NewBounds(MaxSensors + 1), InvalidSensorCount},
		{"WrapsUint8", 256 + 4, NewBounds(260), InvalidSensorCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRecord(tc.count, tc.b)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
			if r != (Record{}) {
				t.Fatalf("record=%+v want zero on error", r)
			}
		})
	}
}

func TestValidate_Layers(t *testing.T) {
	good := mustRecord(t, 8, uniformBounds(8, 100, 3000))

	resum := func(r Record) Record {
		r.Checksum = Checksum(r)
		return r
	}

	cases := []struct {
		name   string
		rec    Record
		expect int
		want   ErrorCode
	}{
		{"Valid", good, 8, Success},
		{"MagicBeforeChecksum", func() Record { r := good; r.Magic = 0xBEEF; return r }(), 8, MagicMismatch},
		{"VersionBeforeChecksum", func() Record { r := good; r.Version = 2; return r }(), 8, VersionMismatch},
		{"VersionResummed", resum(func() Record { r := good; r.Version = 2; return r }()), 8, VersionMismatch},
		{"SensorCount", good, 6, SensorCountMismatch},
		{"ChecksumBeforeRange", func() Record { r := good; r.Minimum[2] = 5000; return r }(), 8, ChecksumFailed},
		{"InvalidRange", resum(func() Record { r := good; r.Minimum[3] = 3000; return r }()), 8, InvalidRange},
		{"RangeExceeded", resum(func() Record { r := good; r.Maximum[7] = 4096; return r }()), 8, RangeExceeded},
		{"InactiveSlotsIgnored", resum(func() Record { r := good; r.Minimum[9] = 9; return r }()), 8, Success},
		{"ZeroedStore", Record{}, 8, MagicMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.rec, tc.expect); got != tc.want {
				t.Fatalf("Validate=%v want %v", got, tc.want)
			}
		})
	}
}

func TestValidate_SingleBitFlips(t *testing.T) {
	rec := mustRecord(t, 8, uniformBounds(8, 100, 3000))
	buf, _ := rec.MarshalBinary()

	for i := 0; i < RecordSize; i++ {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), buf...)
			mut[i] ^= 1 << bit

			var r Record
			if err := r.UnmarshalBinary(mut); err != nil {
				t.Fatalf("UnmarshalBinary: %v", err)
			}
			got := Validate(r, 8)

			var want ErrorCode
			switch {
			case i < offVersion:
				want = MagicMismatch
			case i == offVersion:
				want = VersionMismatch
			case i == offSensorCount:
				want = SensorCountMismatch
			default:
				want = ChecksumFailed
			}
			if got != want {
				t.Fatalf("byte %d bit %d: Validate=%v want %v", i, bit, got, want)
			}
		}
	}
}

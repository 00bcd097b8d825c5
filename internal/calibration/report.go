package calibration

import (
	"encoding/binary"
	"fmt"
	"io"
)

// dumpLen is how many raw bytes DisplayStoredCalibration prints when the
// stored record is invalid.
const dumpLen = 16

// DisplayStoredCalibration writes a human readable view of the stored record
// to w. Invalid data is shown as a short hex dump.
func (m *Manager) DisplayStoredCalibration(w io.Writer) {
	fmt.Fprintln(w, "=== stored calibration ===")
	if !m.initialized {
		fmt.Fprintln(w, "store: manager not initialized")
		fmt.Fprintf(w, "last error: %s\n", m.lastErr.Description())
		return
	}
	fmt.Fprintf(w, "store: %d bytes, record at address %d\n", m.storeSize, m.start)

	rec, err := m.read()
	if err != nil {
		fmt.Fprintf(w, "status: unreadable (%v)\n", err)
		return
	}
	if code := Validate(rec, m.sensorCount); code != Success {
		fmt.Fprintln(w, "status: no valid data")
		fmt.Fprintf(w, "validation error: %s\n", code.Description())
		raw, err := m.readRaw(dumpLen)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "raw (first %d bytes): % X\n", dumpLen, raw)
		return
	}

	fmt.Fprintln(w, "status: valid")
	writeRecord(w, rec)
}

func writeRecord(w io.Writer, rec Record) {
	fmt.Fprintf(w, "magic=0x%04X version=%d sensors=%d checksum=0x%08X\n",
		rec.Magic, rec.Version, rec.SensorCount, rec.Checksum)

	n := int(rec.SensorCount)
	total := 0
	for i := 0; i < n && i < MaxSensors; i++ {
		lo, hi := rec.Minimum[i], rec.Maximum[i]
		total += int(hi) - int(lo)
		fmt.Fprintf(w, "  sensor %2d: min=%4d max=%4d range=%4d\n", i, lo, hi, int(hi)-int(lo))
	}
	if n > 0 {
		avg := total / n
		fmt.Fprintf(w, "average range %d (%s)\n", avg, Quality(avg))
	}
}

// StatusReport writes the manager configuration and a summary of what is
// currently stored.
func (m *Manager) StatusReport(w io.Writer) {
	fmt.Fprintln(w, "=== calibration manager status ===")
	if !m.initialized {
		fmt.Fprintln(w, "initialized: false")
		fmt.Fprintf(w, "failure reason: %s\n", m.lastErr.Description())
		return
	}
	fmt.Fprintln(w, "initialized: true")
	fmt.Fprintf(w, "store: %d bytes, record at address %d\n", m.storeSize, m.start)
	fmt.Fprintf(w, "sensors: %d\n", m.sensorCount)
	fmt.Fprintf(w, "record size: %d bytes (%.1f%% of store, %d bytes free)\n",
		RecordSize, float64(RecordSize)/float64(m.storeSize)*100, m.storeSize-RecordSize)

	raw, err := m.readRaw(offVersion)
	if err != nil {
		fmt.Fprintf(w, "stored data: unreadable (%v)\n", err)
		return
	}
	magic := binary.LittleEndian.Uint16(raw[offMagic:])
	fmt.Fprintf(w, "stored magic: 0x%04X (expected 0x%04X)\n", magic, Magic)
	switch {
	case magic != Magic:
		fmt.Fprintln(w, "stored data: none, calibration required")
	case m.HasValidCalibration():
		fmt.Fprintln(w, "stored data: valid")
	default:
		fmt.Fprintln(w, "stored data: signature found but validation failed")
	}
}

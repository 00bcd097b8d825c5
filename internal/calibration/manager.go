package calibration

import "log"

var logf = log.Printf

const (
	DefaultStoreSize    = 512
	DefaultStartAddress = 0
)

// Store is the byte-addressable persistent memory the manager works against.
// It must already be initialized by the application; the manager never
// calls Begin. Multi-byte writes are not assumed to be atomic.
type Store interface {
	ByteAt(addr int) (byte, error)
	SetByte(addr int, v byte) error
	Commit() error
}

type ManagerConfig struct {
	// SensorCount is the number of sensors fitted to the robot (1..MaxSensors).
	SensorCount int
	Debug       bool
	// StoreSize is the usable size of the store in bytes. Zero means
	// DefaultStoreSize.
	StoreSize    int
	StartAddress int
}

// Manager saves, loads and clears the calibration record at a fixed address
// range of a Store. It is the only accessor of that range.
//
// Not safe for concurrent use.
type Manager struct {
	st Store

	sensorCount int
	storeSize   int
	start       int
	debug       bool

	initialized bool
	lastErr     ErrorCode
}

// NewManager validates cfg and checks st with a non-destructive
// read/write/commit at the start address. Failures leave the manager
// uninitialized with LastError describing why; callers must check
// Initialized before using it.
func NewManager(st Store, cfg ManagerConfig) *Manager {
	if cfg.StoreSize == 0 {
		cfg.StoreSize = DefaultStoreSize
	}
	m := &Manager{
		st:          st,
		sensorCount: cfg.SensorCount,
		storeSize:   cfg.StoreSize,
		start:       cfg.StartAddress,
		debug:       cfg.Debug,
	}
	m.debugf("configuring sensors=%d store_size=%d start=%d", cfg.SensorCount, cfg.StoreSize, cfg.StartAddress)

	if st == nil {
		m.fail(NullPointer, "store is nil")
		return m
	}
	if cfg.SensorCount < 1 || cfg.SensorCount > MaxSensors {
		m.fail(InvalidSensorCount, "sensor count %d must be 1-%d", cfg.SensorCount, MaxSensors)
		return m
	}
	if cfg.StartAddress < 0 || cfg.StartAddress+RecordSize > cfg.StoreSize {
		m.fail(InsufficientSpace, "need %d bytes at address %d, store has %d", RecordSize, cfg.StartAddress, cfg.StoreSize)
		return m
	}

	b, err := st.ByteAt(m.start)
	if err == nil {
		err = st.SetByte(m.start, b)
	}
	if err == nil {
		err = st.Commit()
	}
	if err != nil {
		m.fail(StoreNotReady, "store access check failed: %v", err)
		return m
	}

	m.initialized = true
	m.lastErr = Success
	m.debugf("ready record_size=%d free=%d", RecordSize, m.storeSize-RecordSize)
	return m
}

func (m *Manager) Initialized() bool { return m.initialized }

// LastError reports the outcome of the most recent operation that records one
// (construction, Save, Load, Clear). On a manager that failed construction it
// keeps the construction cause; Save, Load and Clear then return
// StoreNotReady without replacing it.
func (m *Manager) LastError() ErrorCode { return m.lastErr }

func (m *Manager) SensorCount() int { return m.sensorCount }

func (m *Manager) SetDebugEnabled(enabled bool) { m.debug = enabled }

// Save persists the first SensorCount entries of b. At least one sensor must
// satisfy min < max <= ADCMax. The record is written, committed, read back
// and validated; a failure at any of those steps may leave the range
// partially written.
func (m *Manager) Save(b Bounds) error {
	if !m.initialized {
		return m.notReady("save")
	}
	if !b.holds(m.sensorCount) {
		return m.fail(NullPointer, "save: bounds hold fewer than %d sensors", m.sensorCount)
	}

	valid, total := validSensors(b, m.sensorCount)
	if valid == 0 {
		return m.fail(NoValidData, "save: no sensor has a valid calibration range")
	}
	if m.debug {
		for i := 0; i < m.sensorCount; i++ {
			if lo, hi := b.Minimum[i], b.Maximum[i]; lo >= hi || hi > ADCMax {
				m.debugf("save: sensor %d has invalid range min=%d max=%d", i, lo, hi)
			}
		}
		avg := total / valid
		m.debugf("save: %d/%d sensors valid, average range %d (%s)", valid, m.sensorCount, avg, Quality(avg))
	}

	rec, err := NewRecord(m.sensorCount, b)
	if err != nil {
		return m.fail(NullPointer, "save: build record: %v", err)
	}
	buf, _ := rec.MarshalBinary()
	for i, v := range buf {
		if err := m.st.SetByte(m.start+i, v); err != nil {
			return m.fail(WriteFailed, "save: write at %d: %v", m.start+i, err)
		}
	}
	if err := m.st.Commit(); err != nil {
		return m.fail(CommitFailed, "save: commit: %v", err)
	}

	got, err := m.read()
	if err != nil {
		return m.fail(VerificationFailed, "save: read back: %v", err)
	}
	if code := Validate(got, m.sensorCount); code != Success {
		return m.fail(VerificationFailed, "save: read back failed validation: %v", code)
	}
	if got.Magic != rec.Magic || got.Version != rec.Version ||
		got.SensorCount != rec.SensorCount || got.Checksum != rec.Checksum {
		return m.fail(VerificationFailed, "save: read back mismatch checksum=0x%08X want 0x%08X", got.Checksum, rec.Checksum)
	}

	m.lastErr = Success
	m.debugf("saved %d bytes at %d checksum=0x%08X", RecordSize, m.start, rec.Checksum)
	return nil
}

// Load reads and validates the stored record and, only if every layer
// passes, copies the bounds of the first SensorCount sensors into dst.
func (m *Manager) Load(dst *Bounds) error {
	if !m.initialized {
		return m.notReady("load")
	}
	if dst == nil || !dst.holds(m.sensorCount) {
		return m.fail(NullPointer, "load: destination holds fewer than %d sensors", m.sensorCount)
	}

	rec, err := m.read()
	if err != nil {
		return m.fail(StoreNotReady, "load: %v", err)
	}
	if code := Validate(rec, m.sensorCount); code != Success {
		return m.fail(code, "load: stored data rejected: %s", code.Description())
	}

	for i := 0; i < m.sensorCount; i++ {
		dst.Minimum[i] = rec.Minimum[i]
		dst.Maximum[i] = rec.Maximum[i]
	}
	m.lastErr = Success
	if m.debug {
		_, total := validSensors(*dst, m.sensorCount)
		avg := total / m.sensorCount
		m.debugf("loaded version=%d sensors=%d checksum=0x%08X average range %d (%s)",
			rec.Version, rec.SensorCount, rec.Checksum, avg, Quality(avg))
	}
	return nil
}

// HasValidCalibration reports whether the stored record passes validation.
// It touches neither caller state nor LastError.
func (m *Manager) HasValidCalibration() bool {
	if !m.initialized {
		return false
	}
	rec, err := m.read()
	if err != nil {
		return false
	}
	return Validate(rec, m.sensorCount) == Success
}

// Clear zeroes the record range and commits. A cleared range fails the magic
// check on the next load.
func (m *Manager) Clear() error {
	if !m.initialized {
		return m.notReady("clear")
	}
	for i := 0; i < RecordSize; i++ {
		if err := m.st.SetByte(m.start+i, 0); err != nil {
			return m.fail(WriteFailed, "clear: write at %d: %v", m.start+i, err)
		}
	}
	if err := m.st.Commit(); err != nil {
		return m.fail(CommitFailed, "clear: commit: %v", err)
	}
	m.lastErr = Success
	m.debugf("cleared %d bytes at %d", RecordSize, m.start)
	return nil
}

// read returns the raw record range, decoded but not validated.
func (m *Manager) read() (Record, error) {
	buf, err := m.readRaw(RecordSize)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := rec.UnmarshalBinary(buf); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (m *Manager) readRaw(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := m.st.ByteAt(m.start + i)
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// notReady rejects an operation on a manager that failed construction. It
// leaves LastError at the construction cause so reports keep the real reason.
func (m *Manager) notReady(op string) error {
	m.debugf("%s: manager not initialized (%s)", op, m.lastErr)
	return StoreNotReady
}

// fail records code as the last error, logs the reason when debugging and
// returns code as an error.
func (m *Manager) fail(code ErrorCode, format string, args ...any) error {
	m.lastErr = code
	m.debugf(format, args...)
	return code.err()
}

func (m *Manager) debugf(format string, args ...any) {
	if !m.debug {
		return
	}
	logf("calibration: "+format, args...)
}

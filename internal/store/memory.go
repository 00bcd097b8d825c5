package store

import "fmt"

// Memory is a RAM-only store. Writes go to a working buffer; Commit copies it
// to the persisted image, and Reboot throws away uncommitted writes the way a
// power cycle would.
//
// FailWriteAt and FailCommitAt inject faults on the n-th call (1-based,
// counted since Begin); zero disables them.
//
// Not safe for concurrent use.
type Memory struct {
	work      []byte
	persisted []byte
	begun     bool

	FailWriteAt  int
	FailCommitAt int

	writes  int
	commits int
}

func NewMemory() *Memory {
	return &Memory{}
}

// Begin allocates size bytes. Calling it again keeps the persisted image,
// growing or truncating it to the new size.
func (m *Memory) Begin(size int) error {
	if err := checkSize(size); err != nil {
		return err
	}
	p := make([]byte, size)
	copy(p, m.persisted)
	m.persisted = p
	m.work = append([]byte(nil), p...)
	m.begun = true
	m.writes, m.commits = 0, 0
	return nil
}

func (m *Memory) ByteAt(addr int) (byte, error) {
	if !m.begun {
		return 0, ErrNotBegun
	}
	if err := checkAddr(addr, len(m.work)); err != nil {
		return 0, err
	}
	return m.work[addr], nil
}

func (m *Memory) SetByte(addr int, v byte) error {
	if !m.begun {
		return ErrNotBegun
	}
	m.writes++
	if m.FailWriteAt > 0 && m.writes == m.FailWriteAt {
		return fmt.Errorf("%w: write %d", ErrInjected, m.writes)
	}
	if err := checkAddr(addr, len(m.work)); err != nil {
		return err
	}
	m.work[addr] = v
	return nil
}

func (m *Memory) Commit() error {
	if !m.begun {
		return ErrNotBegun
	}
	m.commits++
	if m.FailCommitAt > 0 && m.commits == m.FailCommitAt {
		return fmt.Errorf("%w: commit %d", ErrInjected, m.commits)
	}
	copy(m.persisted, m.work)
	return nil
}

// Reboot discards uncommitted writes.
func (m *Memory) Reboot() {
	copy(m.work, m.persisted)
}

// Persisted returns a copy of the committed image.
func (m *Memory) Persisted() []byte {
	return append([]byte(nil), m.persisted...)
}

func (m *Memory) Size() int { return len(m.work) }

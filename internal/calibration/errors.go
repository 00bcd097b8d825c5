package calibration

// ErrorCode classifies the outcome of a calibration operation. Every code
// except Success can be returned as an error.
type ErrorCode uint8

const (
	Success ErrorCode = iota
	StoreNotReady
	InvalidSensorCount
	InsufficientSpace
	NoValidData
	MagicMismatch
	VersionMismatch
	SensorCountMismatch
	ChecksumFailed
	InvalidRange
	RangeExceeded
	WriteFailed
	CommitFailed
	VerificationFailed
	NullPointer
)

var codeNames = [...]string{
	Success:             "success",
	StoreNotReady:       "store not ready",
	InvalidSensorCount:  "invalid sensor count",
	InsufficientSpace:   "insufficient space",
	NoValidData:         "no valid data",
	MagicMismatch:       "magic mismatch",
	VersionMismatch:     "version mismatch",
	SensorCountMismatch: "sensor count mismatch",
	ChecksumFailed:      "checksum failed",
	InvalidRange:        "invalid range",
	RangeExceeded:       "range exceeded",
	WriteFailed:         "write failed",
	CommitFailed:        "commit failed",
	VerificationFailed:  "verification failed",
	NullPointer:         "null pointer",
}

func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

func (c ErrorCode) Error() string {
	return "calibration: " + c.String()
}

// Description is a human readable explanation suitable for a status console.
func (c ErrorCode) Description() string {
	switch c {
	case Success:
		return "Operation completed successfully"
	case StoreNotReady:
		return "Persistent store not initialized or not accessible"
	case InvalidSensorCount:
		return "Sensor count out of valid range (1-16)"
	case InsufficientSpace:
		return "Not enough space in the persistent store for calibration data"
	case NoValidData:
		return "No valid calibration data found"
	case MagicMismatch:
		return "Stored data signature is invalid (no calibration saved or corrupted)"
	case VersionMismatch:
		return "Stored data format version is incompatible, recalibration required"
	case SensorCountMismatch:
		return "Stored sensor count doesn't match current hardware"
	case ChecksumFailed:
		return "Data corruption detected (checksum mismatch)"
	case InvalidRange:
		return "Invalid calibration range (minimum >= maximum)"
	case RangeExceeded:
		return "Calibration values exceed ADC range (0-4095)"
	case WriteFailed:
		return "Failed to write data to the persistent store"
	case CommitFailed:
		return "Failed to commit changes to the persistent store"
	case VerificationFailed:
		return "Written data verification failed"
	case NullPointer:
		return "Missing or undersized calibration buffer"
	default:
		return "Unknown error"
	}
}

// err converts a code into an error value, mapping Success to nil.
func (c ErrorCode) err() error {
	if c == Success {
		return nil
	}
	return c
}

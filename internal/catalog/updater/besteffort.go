package updater

// BestEffort is the outcome of a side effect that must be attempted but whose
// failure never fails the pipeline (audit logging, periodic session flushes).
// It does not implement error.
type BestEffort struct {
	err error
}

// NewBestEffort records the failure of a side effect, a nil err is a success.
func NewBestEffort(err error) BestEffort {
	return BestEffort{err: err}
}

func (b BestEffort) Failed() bool {
	return b.err != nil
}

// Warning describes the failure, it is empty when the side effect succeeded.
func (b BestEffort) Warning() string {
	if b.err == nil {
		return ""
	}
	return b.err.Error()
}

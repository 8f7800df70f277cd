package pipeline

// State is implemented by every pipeline state record. Failure returns the
// reserved error field; a non-empty value marks the run as failed.
type State interface {
	Failure() string
}

// Status holds the reserved error field. Pipeline states embed it so the
// field serializes as "error".
type Status struct {
	Error string `json:"error,omitempty"`
}

// Failure implements State.
func (s Status) Failure() string {
	return s.Error
}

// Fail sets the error message unless one is already recorded. The first
// failure wins.
func (s *Status) Fail(message string) {
	if s.Error == "" {
		s.Error = message
	}
}

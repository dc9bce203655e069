package ocr

// Session holds the state of one user's interaction: their history and the
// text currently available for keyword search. It is not safe for concurrent
// use.
type Session struct {
	History *History

	active    ExtractionResult
	hasActive bool
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{History: &History{}}
}

// Active returns the most recent successful extraction, if any.
func (s *Session) Active() (ExtractionResult, bool) {
	return s.active, s.hasActive
}

// SetActive makes r the active extraction. Failed results are ignored so a
// bad upload never hides earlier text.
func (s *Session) SetActive(r ExtractionResult) {
	if !r.Succeeded {
		return
	}
	s.active = r
	s.hasActive = true
}

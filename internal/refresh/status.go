package refresh

import "time"

// Status describes the background refresh worker
type Status struct {
	Running       bool      `json:"running"`
	RequestID     string    `json:"request_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
}

// Status returns a copy of the worker status
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Service) setRunning(req request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = true
	s.status.RequestID = req.id
	s.status.Reason = req.reason
	s.status.StartedAt = time.Now().UTC()
}

func (s *Service) setDone(req request, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	if err != nil {
		s.status.Failed++
		s.status.LastError = err.Error()
		return
	}
	s.status.Completed++
	s.status.LastSuccessAt = time.Now().UTC()
	s.status.LastError = ""
}

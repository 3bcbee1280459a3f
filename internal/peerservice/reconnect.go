package peerservice

import "time"

// reconnectLoop runs on a fixed interval: for every configured endpoint
// whose ID is unknown or not presently connected, attempt a new dial.
// Self-endpoints are not filtered out: they are dialed on every tick,
// Connect rejects them with ErrSelfLoop, and the loop does not log that
// error.
func (s *Service) reconnectLoop() {
	ticker := time.NewTicker(s.reconnectPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.tg.StopChan():
			return
		case <-ticker.C:
			s.reconnectPass()
		}
	}
}

func (s *Service) reconnectPass() {
	s.mu.RLock()
	endpoints := append([]string(nil), s.endpoints...)
	s.mu.RUnlock()

	for _, ep := range endpoints {
		id, hasID := s.sessions.idForEndpoint(ep)
		if hasID {
			if _, connected := s.sessions.get(id); connected {
				continue
			}
		}
		if err := s.Connect(ep); err != nil && err != ErrSelfLoop && s.log != nil {
			s.log.Printf("WARN: reconnect to %s failed: %v", ep, err)
		}
	}
}

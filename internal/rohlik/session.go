package rohlik

import "sync"

// Session holds the cookie blob and the account identifiers resolved at
// login. The cookie header is opaque: it is replaced wholesale whenever the
// upstream sends Set-Cookie, never merged per-cookie.
//
// The generation counter increments on every populate/clear. Callers that
// snapshot the generation before a request can tell whether another caller
// already refreshed the session when they come back with a 401, so at most
// one login per expiry is authoritative.
type Session struct {
	mutex        sync.RWMutex
	cookieHeader string
	userID       string
	addressID    string
	generation   uint64
}

func (s *Session) CookieHeader() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cookieHeader
}

// SetCookieHeader overwrites the stored blob. Empty headers are ignored so a
// response without Set-Cookie does not wipe a live session.
func (s *Session) SetCookieHeader(header string) {
	if header == "" {
		return
	}
	s.mutex.Lock()
	s.cookieHeader = header
	s.mutex.Unlock()
}

func (s *Session) Identifiers() (userID, addressID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID, s.addressID
}

func (s *Session) Populated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID != ""
}

func (s *Session) Generation() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.generation
}

func (s *Session) Populate(cookieHeader, userID, addressID string) {
	s.mutex.Lock()
	if cookieHeader != "" {
		s.cookieHeader = cookieHeader
	}
	s.userID = userID
	s.addressID = addressID
	s.generation++
	s.mutex.Unlock()
}

func (s *Session) Clear() {
	s.mutex.Lock()
	s.cookieHeader = ""
	s.userID = ""
	s.addressID = ""
	s.generation++
	s.mutex.Unlock()
}

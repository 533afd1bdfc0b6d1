package routes

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/validation-portal/portal-client/internal/types"
)

type storedReport struct {
	createdAt time.Time
	username  string
	filename  string
	content   []byte
	id        int64
}

// In-memory accounts, sessions and generated reports
type Server struct {
	users   map[string]string
	access  map[string]string
	refresh map[string]string
	reports []storedReport
	nextID  int64
	mu      sync.Mutex
}

func NewServer(users map[string]string) *Server {
	return &Server{
		users:   users,
		access:  make(map[string]string),
		refresh: make(map[string]string),
		nextID:  1,
	}
}

const usernameKey = "username"

func (s *Server) validateToken(token string, c echo.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.access[token]
	if ok {
		c.Set(usernameKey, username)
	}
	return ok, nil
}

func (s *Server) issue(username string) types.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := types.TokenPair{Access: uuid.NewString(), Refresh: uuid.NewString()}
	s.access[pair.Access] = username
	s.refresh[pair.Refresh] = username
	return pair
}

func (s *Server) store(username, filename string, content []byte) storedReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := storedReport{
		createdAt: time.Now().UTC(),
		username:  username,
		filename:  filename,
		content:   content,
		id:        s.nextID,
	}
	s.nextID++
	s.reports = append(s.reports, r)
	return r
}

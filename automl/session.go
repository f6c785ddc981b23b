package automl

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// Session scopes one user's work: its own id, logger, configuration and
// latest outcome. Sessions share nothing, so concurrent users never see
// each other's models.
type Session struct {
	ID string

	cfg      Config
	logger   log.Logger
	searcher *Searcher

	mu   sync.Mutex
	last *SearchOutcome
}

// NewSession starts a session with a fresh id. opts are applied to the
// session's searcher after the config and logger.
func NewSession(cfg Config, opts ...Option) *Session {
	id := uuid.NewString()
	logger := log.GetLoggerWithName("automl.session").With(log.SessionIDKey, id)
	base := []Option{WithConfig(cfg), WithLogger(logger)}
	return &Session{
		ID:       id,
		cfg:      cfg,
		logger:   logger,
		searcher: NewSearcher(append(base, opts...)...),
	}
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() log.Logger { return s.logger }

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

// Search runs a search tagged with the session id and remembers its outcome.
func (s *Session) Search(ctx context.Context, in SearchInput) (*SearchOutcome, error) {
	in.SessionID = s.ID
	out, err := s.searcher.Search(ctx, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = out
	s.mu.Unlock()
	return out, nil
}

// Last returns the most recent successful outcome, or nil.
func (s *Session) Last() *SearchOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// TrainSingle trains one named algorithm with the session's algorithms and grids.
func (s *Session) TrainSingle(ctx context.Context, req ManualRequest) (TrialResult, error) {
	return s.searcher.TrainSingle(ctx, req)
}

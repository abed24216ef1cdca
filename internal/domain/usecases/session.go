package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
)

var (
	// ErrSessionNotFound is returned for an unknown or ended session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoDataset is returned when a session is started before the dataset loaded.
	ErrNoDataset = errors.New("dataset not loaded")
)

// DatasetSource provides the snapshot a new session binds to.
type DatasetSource interface {
	Current() *entities.Dataset
}

// SessionUseCase owns the conversation lifecycle: one engine and one
// dataset snapshot per session, never shared.
type SessionUseCase struct {
	datasets DatasetSource
	factory  ports.EngineFactory
	store    ports.SessionStore
	query    *QueryUseCase
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionUseCase creates a SessionUseCase with injected dependencies.
func NewSessionUseCase(
	datasets DatasetSource,
	factory ports.EngineFactory,
	store ports.SessionStore,
	query *QueryUseCase,
	logger *zap.Logger,
) *SessionUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionUseCase{
		datasets: datasets,
		factory:  factory,
		store:    store,
		query:    query,
		logger:   logger.Named("session"),
		now:      time.Now,
	}
}

// Start creates a session bound to the current dataset snapshot.
func (uc *SessionUseCase) Start(ctx context.Context) (*ports.Session, error) {
	ds := uc.datasets.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	engine, err := uc.factory.NewEngine(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("creating answering engine: %w", err)
	}

	s := &ports.Session{
		ID:        uuid.New().String(),
		Dataset:   ds,
		Engine:    engine,
		CreatedAt: uc.now(),
	}
	uc.store.Put(s)
	uc.logger.Info("session started", zap.String("session_id", s.ID), zap.Int("rows", ds.Rows()))
	return s, nil
}

// Ask runs one turn in the given session. Turns within a session are serialized.
func (uc *SessionUseCase) Ask(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error) {
	s, ok := uc.store.Get(req.SessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Ended {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
	}

	resp := uc.query.Respond(ctx, req.Utterance, s.Engine)
	resp.SessionID = s.ID

	now := uc.now()
	s.Transcript = append(s.Transcript,
		entities.ChatMessage{Role: "user", Content: req.Utterance, Timestamp: now},
		entities.ChatMessage{Role: "assistant", Content: resp.Text, Timestamp: now},
	)
	return resp, nil
}

// Transcript returns a copy of the session's messages so far.
func (uc *SessionUseCase) Transcript(id string) ([]entities.ChatMessage, error) {
	s, ok := uc.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Ended {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return append([]entities.ChatMessage(nil), s.Transcript...), nil
}

// End destroys the session and releases its engine.
func (uc *SessionUseCase) End(id string) error {
	s, ok := uc.store.Delete(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()

	uc.logger.Info("session ended", zap.String("session_id", id), zap.Int("messages", len(s.Transcript)))
	s.Ended = true
	s.Transcript = nil
	if c, ok := s.Engine.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing engine: %w", err)
		}
	}
	return nil
}

// Active returns the number of live sessions.
func (uc *SessionUseCase) Active() int {
	return uc.store.Len()
}

// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"sync"
	"time"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

// AnsweringEngine maps one natural-language question about its bound
// Dataset to a render-ready answer. Any non-nil error means the engine
// could not answer; callers must not inspect the error text.
type AnsweringEngine interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Reentrant is implemented by engines that tolerate concurrent Answer calls.
type Reentrant interface {
	Reentrant() bool
}

// EngineFactory creates one AnsweringEngine bound to a Dataset.
// Engines returned may implement io.Closer; the session owner closes them.
type EngineFactory interface {
	NewEngine(ctx context.Context, ds *entities.Dataset) (AnsweringEngine, error)
}

// LLMService generates text responses from a language model.
// Single Responsibility: Only LLM inference.
type LLMService interface {
	// Generate produces a completion for a system instruction and a user prompt.
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// DatasetLoader reads a tabular source into a Dataset.
type DatasetLoader interface {
	// Load reads and normalizes the dataset at path.
	Load(ctx context.Context, path string) (*entities.Dataset, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors files for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// Session binds one conversation to one engine and one Dataset snapshot.
// Mu serializes turns and guards Transcript and Ended; the transcript lives
// only as long as the session.
type Session struct {
	ID        string
	Dataset   *entities.Dataset
	Engine    AnsweringEngine
	CreatedAt time.Time

	Mu         sync.Mutex
	Transcript []entities.ChatMessage
	Ended      bool
}

// SessionStore keeps live sessions keyed by conversation identity.
type SessionStore interface {
	Put(s *Session)
	Get(id string) (*Session, bool)
	Delete(id string) (*Session, bool)
	Len() int
}

// TurnPath tells how a turn was answered.
type TurnPath string

const (
	PathDirect     TurnPath = "direct"
	PathDecomposed TurnPath = "decomposed"
)

// TurnObserver receives per-turn outcomes (metrics, audit).
type TurnObserver interface {
	ObserveTurn(path TurnPath, subquestions, failures int, elapsed time.Duration)
	ObserveEngineCall(elapsed time.Duration, err error)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) ObserveTurn(TurnPath, int, int, time.Duration) {}
func (NopObserver) ObserveEngineCall(time.Duration, error)        {}

package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

// mockLoader implements ports.DatasetLoader for testing
type mockLoader struct {
	mu    sync.Mutex
	loads int
	err   error
	sales float64
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	ds := &entities.Dataset{Source: path}
	for _, name := range scoring.MetricColumns {
		ds.SetColumn(entities.NumericColumn(name, []float64{m.sales + 1, m.sales + 2}))
	}
	return ds, nil
}

func (m *mockLoader) SupportedExtensions() []string { return []string{".csv"} }

func (m *mockLoader) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// mockWatcher implements ports.FileWatcher for testing
type mockWatcher struct {
	events chan ports.FileEvent
	dir    string
}

func (w *mockWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	w.dir = dir
	return w.events, nil
}

func (w *mockWatcher) Stop() error { return nil }

func TestDatasetUseCase_LoadScores(t *testing.T) {
	uc := NewDatasetUseCase(&mockLoader{}, "data/stores.csv", DatasetOptions{Score: true}, nil)

	ds, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, ok := ds.Column(scoring.ColComposite); !ok {
		t.Error("expected composite score column")
	}
	if uc.Current() != ds {
		t.Error("current snapshot should be the loaded dataset")
	}
}

func TestDatasetUseCase_LoadWithoutScoring(t *testing.T) {
	uc := NewDatasetUseCase(&mockLoader{}, "stores.csv", DatasetOptions{}, nil)

	ds, _ := uc.Load(context.Background())
	if _, ok := ds.Column(scoring.ColComposite); ok {
		t.Error("scoring should be skipped")
	}
}

func TestDatasetUseCase_LoadError(t *testing.T) {
	uc := NewDatasetUseCase(&mockLoader{err: errors.New("no such file")}, "x.csv", DatasetOptions{}, nil)

	if _, err := uc.Load(context.Background()); err == nil {
		t.Error("expected load error")
	}
	if uc.Current() != nil {
		t.Error("no snapshot should be published")
	}
}

func TestDatasetUseCase_WatchReloads(t *testing.T) {
	loader := &mockLoader{}
	path := filepath.Join("data", "stores.csv")
	reloaded := make(chan error, 4)
	uc := NewDatasetUseCase(loader, path, DatasetOptions{
		ReloadDelay: 10 * time.Millisecond,
		OnReload:    func(ds *entities.Dataset, err error) { reloaded <- err },
	}, nil)

	first, _ := uc.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	watcher := &mockWatcher{events: make(chan ports.FileEvent, 4)}
	go uc.Watch(ctx, watcher)

	// Unrelated file first, then two quick writes to the dataset
	watcher.events <- ports.FileEvent{Path: filepath.Join("data", "other.csv"), Operation: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for reload")
	}

	if uc.Current() == first {
		t.Error("snapshot should be replaced after reload")
	}
	if watcher.dir != "data" {
		t.Errorf("expected to watch data dir, got %q", watcher.dir)
	}
}

func TestDatasetUseCase_FailedReloadKeepsSnapshot(t *testing.T) {
	loader := &mockLoader{}
	reloaded := make(chan error, 1)
	uc := NewDatasetUseCase(loader, "stores.csv", DatasetOptions{
		ReloadDelay: 5 * time.Millisecond,
		OnReload:    func(ds *entities.Dataset, err error) { reloaded <- err },
	}, nil)

	first, _ := uc.Load(context.Background())
	loader.setErr(errors.New("half-written file"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	watcher := &mockWatcher{events: make(chan ports.FileEvent, 1)}
	go uc.Watch(ctx, watcher)

	watcher.events <- ports.FileEvent{Path: "stores.csv", Operation: ports.FileCreated}

	select {
	case err := <-reloaded:
		if err == nil {
			t.Fatal("expected reload error")
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for reload")
	}

	if uc.Current() != first {
		t.Error("previous snapshot should be kept")
	}
}

// textLoader returns a dataset without metric columns.
type textLoader struct{}

func (textLoader) Load(ctx context.Context, path string) (*entities.Dataset, error) {
	ds := &entities.Dataset{Source: path}
	ds.SetColumn(entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{"North"}})
	return ds, nil
}

func (textLoader) SupportedExtensions() []string { return []string{".csv"} }

func TestDatasetUseCase_ScoringSkippedWithoutMetrics(t *testing.T) {
	uc := NewDatasetUseCase(textLoader{}, "stores.csv", DatasetOptions{Score: true}, nil)

	ds, err := uc.Load(context.Background())
	if err != nil {
		t.Fatalf("load should succeed unscored: %v", err)
	}
	if _, ok := ds.Column(scoring.ColComposite); ok {
		t.Error("composite should be absent")
	}
}

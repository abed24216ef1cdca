package sessionstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
)

func TestInMemoryStore_PutGetDelete(t *testing.T) {
	store := NewInMemoryStore(nil)
	store.Put(&ports.Session{ID: "s1"})

	s, ok := store.Get("s1")
	if !ok || s.ID != "s1" {
		t.Fatal("session should be found")
	}

	if _, ok := store.Delete("s1"); !ok {
		t.Error("delete should report the session")
	}
	if _, ok := store.Get("s1"); ok {
		t.Error("session should be gone")
	}
	if _, ok := store.Delete("s1"); ok {
		t.Error("second delete should report nothing")
	}
}

func TestInMemoryStore_OnChange(t *testing.T) {
	var counts []int
	store := NewInMemoryStore(func(n int) { counts = append(counts, n) })

	store.Put(&ports.Session{ID: "a"})
	store.Put(&ports.Session{ID: "b"})
	store.Delete("a")
	store.Delete("missing")

	want := []int{1, 2, 1}
	if fmt.Sprint(counts) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, counts)
	}
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	store := NewInMemoryStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			store.Put(&ports.Session{ID: id})
			store.Get(id)
		}(i)
	}
	wg.Wait()

	if store.Len() != 50 || len(store.IDs()) != 50 {
		t.Errorf("expected 50 sessions, got %d", store.Len())
	}
}

package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

func TestSession_ApplyKeepsPreviousOnFailure(t *testing.T) {
	s := New()
	if s.Current() != nil {
		t.Fatal("new session should be empty")
	}
	first := &pipeline.Result{RunID: "r1", Questions: []question.Question{{Question: "Q1"}}}
	if !s.Apply(first, nil) {
		t.Fatal("successful run should replace the result")
	}
	if s.Apply(nil, errors.New("model call failed")) {
		t.Fatal("failed run must not replace the result")
	}
	if got := s.Current(); got != first {
		t.Fatalf("current=%v want previous result", got)
	}
	second := &pipeline.Result{RunID: "r2"}
	s.Apply(second, nil)
	if s.Current().RunID != "r2" {
		t.Fatalf("current run=%s", s.Current().RunID)
	}
}

func TestStore_GetOrCreate(t *testing.T) {
	st := NewStore(time.Minute)
	a, created := st.GetOrCreate("")
	if !created || a.ID == "" {
		t.Fatalf("expected a new session, got %+v", a)
	}
	b, created := st.GetOrCreate(a.ID)
	if created || b != a {
		t.Fatal("existing id should return the same session")
	}
	c, created := st.GetOrCreate("unknown")
	if !created || c.ID == "unknown" {
		t.Fatal("unknown id should issue a fresh session with its own id")
	}
	if st.Len() != 2 {
		t.Fatalf("len=%d", st.Len())
	}
}

func TestStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	st := NewStore(10 * time.Minute)
	st.now = func() time.Time { return now }

	s, _ := st.GetOrCreate("")
	now = now.Add(5 * time.Minute)
	if _, err := st.Get(s.ID); err != nil {
		t.Fatalf("session should be live: %v", err)
	}
	now = now.Add(11 * time.Minute)
	if _, err := st.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStore_Concurrent(t *testing.T) {
	st := NewStore(0)
	s, _ := st.GetOrCreate("")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := st.GetOrCreate(s.ID)
			got.Apply(&pipeline.Result{RunID: "r"}, nil)
			_ = got.Current()
		}()
	}
	wg.Wait()
	if st.Len() != 1 {
		t.Fatalf("len=%d", st.Len())
	}
}

func TestStore_Delete(t *testing.T) {
	st := NewStore(0)
	s, _ := st.GetOrCreate("")
	if !st.Delete(s.ID) {
		t.Fatal("existing session should be deleted")
	}
	if st.Delete(s.ID) {
		t.Fatal("second delete should report a miss")
	}
	if _, err := st.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

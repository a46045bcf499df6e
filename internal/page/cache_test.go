package page

import (
	"context"
	"errors"
	"testing"
	"time"
)

func countingLoader(calls *int, snaps map[string]*Snapshot) Loader {
	return func(_ context.Context, slug string) (*Snapshot, error) {
		*calls++
		if s, ok := snaps[slug]; ok {
			return s, nil
		}
		return nil, ErrNotFound
	}
}

func TestSnapshotCache(t *testing.T) {
	calls := 0
	sc := NewSnapshotCache(countingLoader(&calls, map[string]*Snapshot{
		"spring-sale": {ID: 7, Slug: "spring-sale"},
	}), 16, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := sc.Load(ctx, "spring-sale"); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}

	sc.InvalidatePage(7)
	if _, err := sc.Load(ctx, "spring-sale"); err != nil {
		t.Fatalf("Load after invalidate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("loader calls = %d, want 2 after InvalidatePage", calls)
	}
}

func TestSnapshotCache_NotFoundNotCached(t *testing.T) {
	calls := 0
	sc := NewSnapshotCache(countingLoader(&calls, nil), 16, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := sc.Load(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if calls != 2 {
		t.Fatalf("loader calls = %d, want 2", calls)
	}
}

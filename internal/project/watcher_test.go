package project

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/nomenclature/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_ChangeInvalidatesCache(t *testing.T) {
	dir, store := testutil.TestProject(t)
	c := NewCache(store, DefaultLayout(), quietLogger())
	if _, err := c.Get(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var changed []string
	go Watch(ctx, dir, c, quietLogger(), func(paths []string) {
		mu.Lock()
		changed = append(changed, paths...)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	extra := "- Emissions|CH4:\n    unit: Mt CH4/yr\n"
	_ = os.WriteFile(filepath.Join(dir, "definitions", "variable", "ch4.yaml"), []byte(extra), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		p, err := c.Get()
		return err == nil && p.Definition.Contains("variable", "Emissions|CH4")
	}, "cache not reloaded after codelist change")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(changed, "definitions/variable/ch4.yaml")
	}, "expected change callback for definitions/variable/ch4.yaml")
}

func TestWatcher_IgnoresNonYAML(t *testing.T) {
	dir, store := testutil.TestProject(t)
	c := NewCache(store, DefaultLayout(), quietLogger())
	first, err := c.Get()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan []string, 4)
	go Watch(ctx, dir, c, quietLogger(), func(paths []string) { calls <- paths })
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "mappings", "README.md"), []byte("# notes"), 0o644)

	select {
	case paths := <-calls:
		t.Fatalf("unexpected invalidation for %v", paths)
	case <-time.After(600 * time.Millisecond):
	}
	p, err := c.Get()
	if err != nil {
		t.Fatal(err)
	}
	if p != first {
		t.Error("cache was reloaded for a non-YAML file")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store := testutil.TestProject(t)
	c := NewCache(store, DefaultLayout(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, dir, c, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "mappings", "extra")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)

	mappingB := "model: model_b\ncommon_regions:\n  - World:\n    - Model A|North\n"
	_ = os.WriteFile(filepath.Join(sub, "model_b.yaml"), []byte(mappingB), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		p, err := c.Get()
		return err == nil && slices.Contains(p.Mappings.Models(), "model_b")
	}, "mapping in new subdir not picked up by watcher")
}

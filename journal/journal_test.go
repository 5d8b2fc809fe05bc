package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/nexus"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Record And Get", func(t *testing.T) {
		store := openStore(t)
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		entry := Entry{
			RunID:     uuid.New(),
			Pipeline:  "sensors",
			Kind:      "JSON",
			Status:    nexus.StatusDegraded,
			Stages:    1,
			Elapsed:   1500 * time.Microsecond,
			Result:    "{}",
			Error:     "sensors -> input failed after 0s: format error: no readings",
			CreatedAt: created,
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		got, err := store.Get(ctx, entry.RunID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Pipeline != entry.Pipeline || got.Kind != entry.Kind || got.Status != entry.Status {
			t.Errorf("unexpected entry %+v", got)
		}
		if got.Elapsed != entry.Elapsed || got.Stages != 1 || got.Result != "{}" || got.Error != entry.Error {
			t.Errorf("unexpected entry %+v", got)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("expected created_at %v, got %v", created, got.CreatedAt)
		}
	})

	t.Run("Get Unknown", func(t *testing.T) {
		store := openStore(t)
		if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Record Replaces Same Run", func(t *testing.T) {
		store := openStore(t)
		id := uuid.New()
		_ = store.Record(ctx, Entry{RunID: id, Pipeline: "p", Kind: "generic", Status: nexus.StatusOK, Result: "a"})
		_ = store.Record(ctx, Entry{RunID: id, Pipeline: "p", Kind: "generic", Status: nexus.StatusOK, Result: "b"})

		entries, err := store.List(ctx, "p", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Result != "b" {
			t.Errorf("expected one replaced entry, got %+v", entries)
		}
	})

	t.Run("List Filters And Limits", func(t *testing.T) {
		store := openStore(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, name := range []string{"a", "b", "a", "a"} {
			err := store.Record(ctx, Entry{
				RunID:     uuid.New(),
				Pipeline:  name,
				Kind:      "generic",
				Status:    nexus.StatusOK,
				Stages:    i,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatal(err)
			}
		}

		all, err := store.List(ctx, "", 0)
		if err != nil || len(all) != 4 {
			t.Fatalf("expected 4 entries, got %d (%v)", len(all), err)
		}
		onlyA, _ := store.List(ctx, "a", 0)
		if len(onlyA) != 3 {
			t.Errorf("expected 3 entries for a, got %d", len(onlyA))
		}
		if onlyA[0].Stages != 0 || onlyA[2].Stages != 3 {
			t.Errorf("expected oldest first, got %+v", onlyA)
		}
		limited, _ := store.List(ctx, "a", 2)
		if len(limited) != 2 {
			t.Errorf("expected 2 entries, got %d", len(limited))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		store := openStore(t)
		for _, st := range []nexus.Status{nexus.StatusOK, nexus.StatusDegraded, nexus.StatusOK} {
			_ = store.Record(ctx, Entry{
				RunID: uuid.New(), Pipeline: "p", Kind: "generic", Status: st, Elapsed: 10 * time.Millisecond,
			})
		}
		stats, err := store.Stats(ctx, "p")
		if err != nil {
			t.Fatal(err)
		}
		want := nexus.Stats{Runs: 3, Successes: 2, Failures: 1, Elapsed: 30 * time.Millisecond}
		if stats != want {
			t.Errorf("expected %+v, got %+v", want, stats)
		}

		empty, err := store.Stats(ctx, "none")
		if err != nil || empty != (nexus.Stats{}) {
			t.Errorf("expected zero stats, got %+v (%v)", empty, err)
		}
	})
}

func TestAttach(t *testing.T) {
	store := openStore(t)
	p := nexus.NewStandardPipeline("sensors", nexus.KindJSON)
	defer p.Close()

	if err := store.Attach(p); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	ok := p.Run(context.Background(), `{"sensor":"temp","value":"23.5"}`)
	bad := p.Run(context.Background(), "{}")

	// Hooks are delivered asynchronously.
	time.Sleep(100 * time.Millisecond)

	got, err := store.Get(context.Background(), ok.RunID)
	if err != nil {
		t.Fatalf("expected successful run journaled: %v", err)
	}
	if got.Status != nexus.StatusOK || got.Result != "Processed temperature reading: 23.5°C (Normal range)" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.Stages != 3 || got.Kind != "JSON" {
		t.Errorf("unexpected entry %+v", got)
	}

	got, err = store.Get(context.Background(), bad.RunID)
	if err != nil {
		t.Fatalf("expected degraded run journaled: %v", err)
	}
	if got.Status != nexus.StatusDegraded || got.Result != "{}" || got.Error == "" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestEntryFromEvent(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	e := EntryFromEvent(nexus.PipelineEvent{
		Timestamp: now,
		Value:     42,
		Error:     errors.New("boom"),
		Name:      "p",
		Kind:      nexus.KindStream,
		RunID:     id,
		Completed: 2,
		Duration:  time.Second,
	})
	if e.RunID != id || e.Pipeline != "p" || e.Kind != "stream" || e.Result != "42" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Status != nexus.StatusDegraded || e.Error != "boom" || e.Stages != 2 || e.Elapsed != time.Second {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestEntryFromOutcome(t *testing.T) {
	p := nexus.NewStandardPipeline("csv", nexus.KindCSV)
	defer p.Close()
	out := p.Run(context.Background(), "user,action\nalice,login")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := EntryFromOutcome(out, p.Kind(), now)
	if e.RunID != out.RunID || e.Pipeline != "csv" || e.Kind != "CSV" || e.Status != nexus.StatusOK {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Result != "User activity logged: 1 actions processed" || e.Error != "" || !e.CreatedAt.Equal(now) {
		t.Errorf("unexpected entry %+v", e)
	}
}

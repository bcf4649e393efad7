package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testRecord struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Symbol    string `json:"symbol,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func ids(t *testing.T, docs []json.RawMessage) map[string]bool {
	t.Helper()
	out := make(map[string]bool, len(docs))
	for _, d := range docs {
		var r testRecord
		if err := json.Unmarshal(d, &r); err != nil {
			t.Fatalf("bad doc %s: %v", d, err)
		}
		out[r.ID] = true
	}
	return out
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Put(ctx, Candidates, testRecord{ID: "c1", Date: "2024-05-02"}); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	doc, err := s2.Get(ctx, Candidates, "c1")
	if err != nil || doc == nil {
		t.Fatalf("record lost across reopen: %v", err)
	}

	var version int
	if err := s2.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Errorf("user_version = %d, want %d", version, SchemaVersion)
	}
}

func TestPutOverwritesByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, Trades, testRecord{ID: "t1", Date: "2024-05-01", Symbol: "005930"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, Trades, testRecord{ID: "t1", Date: "2024-05-02", Symbol: "000660"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListAll(ctx, Trades)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("ListAll len = %d, want 1", len(all))
	}

	old, err := s.ListByIndex(ctx, Trades, ByDate, "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("stale index entry survived overwrite")
	}
	bySymbol, err := s.ListByIndex(ctx, Trades, BySymbol, "000660")
	if err != nil {
		t.Fatal(err)
	}
	if len(bySymbol) != 1 {
		t.Errorf("bySymbol len = %d, want 1", len(bySymbol))
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Get(context.Background(), Candidates, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Errorf("Get(missing) = %s, want nil", doc)
	}
}

func TestDeleteAbsentSucceeds(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), Trades, "nope"); err != nil {
		t.Errorf("Delete(absent) = %v", err)
	}
}

func TestPutRejectsRecordsWithoutKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", `{"date":"2024-05-01"}`},
		{"object id", `{"id":{"x":1}}`},
		{"null", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(ctx, Candidates, json.RawMessage(tt.doc))
			if !errors.Is(err, ErrMissingKey) {
				t.Errorf("Put = %v, want ErrMissingKey", err)
			}
		})
	}

	if err := s.Put(ctx, Candidates, json.RawMessage(`[1,2]`)); err == nil {
		t.Errorf("array document should fail")
	}
}

func TestNumericKeysAndMissingIndexValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, Settings, json.RawMessage(`{"key":7,"value":"x"}`)); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Get(ctx, Settings, "7")
	if err != nil || doc == nil {
		t.Fatalf("numeric key lookup failed: %v", err)
	}

	// A candidate without a date is stored but not indexed.
	if err := s.Put(ctx, Candidates, json.RawMessage(`{"id":"nodate"}`)); err != nil {
		t.Fatal(err)
	}
	all, _ := s.ListAll(ctx, Candidates)
	if len(all) != 1 {
		t.Errorf("ListAll len = %d", len(all))
	}
	byDate, _ := s.ListByIndex(ctx, Candidates, ByDate, "")
	if len(byDate) != 0 {
		t.Errorf("record without date should not be indexed")
	}
}

func TestUnknownCollectionAndIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ListAll(ctx, "orders"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("ListAll(orders) = %v", err)
	}
	if _, err := s.ListByIndex(ctx, Candidates, BySymbol, "x"); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("ListByIndex(bySymbol) on candidates = %v", err)
	}
	if err := s.Put(ctx, "orders", testRecord{ID: "x"}); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Put(orders) = %v", err)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, Candidates, testRecord{ID: "c1", Date: "2024-05-01"})
	s.Put(ctx, Trades, testRecord{ID: "t1", Date: "2024-05-01"})
	s.Put(ctx, Settings, json.RawMessage(`{"key":"k"}`))

	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{Candidates, Trades, Settings} {
		docs, err := s.ListAll(ctx, c)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 0 {
			t.Errorf("%s not empty after ClearAll", c)
		}
	}
}

// Property: deleting a record makes Get return nil and removes it from
// ListAll and ListByIndex, leaving the others untouched.
func TestProperty_DeleteRemovesFromAllViews(t *testing.T) {
	s := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	dates := []string{"2024-05-01", "2024-05-02", "2024-05-03"}

	properties.Property("delete removes record from get and lists", prop.ForAll(
		func(count, victim, dateIdx int) bool {
			ctx := context.Background()
			if err := s.ClearAll(ctx); err != nil {
				return false
			}
			date := dates[dateIdx]
			for i := 0; i < count; i++ {
				rec := testRecord{ID: fmt.Sprintf("c%03d", i), Date: date, CreatedAt: int64(i)}
				if err := s.Put(ctx, Candidates, rec); err != nil {
					return false
				}
			}
			victimID := fmt.Sprintf("c%03d", victim%count)
			if err := s.Delete(ctx, Candidates, victimID); err != nil {
				return false
			}

			doc, err := s.Get(ctx, Candidates, victimID)
			if err != nil || doc != nil {
				return false
			}
			all, err := s.ListAll(ctx, Candidates)
			if err != nil || len(all) != count-1 || ids(t, all)[victimID] {
				return false
			}
			byDate, err := s.ListByIndex(ctx, Candidates, ByDate, date)
			if err != nil || len(byDate) != count-1 || ids(t, byDate)[victimID] {
				return false
			}
			return true
		},
		gen.IntRange(1, 15),
		gen.IntRange(0, 100),
		gen.IntRange(0, len(dates)-1),
	))

	properties.TestingRun(t)
}

// Property: Put then Get returns a document equal to the original.
func TestProperty_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("put/get round trip", prop.ForAll(
		func(id, symbol string, createdAt int64) bool {
			ctx := context.Background()
			in := testRecord{ID: "t-" + id, Date: "2024-06-01", Symbol: symbol, CreatedAt: createdAt}
			if err := s.Put(ctx, Trades, in); err != nil {
				return false
			}
			doc, err := s.Get(ctx, Trades, in.ID)
			if err != nil || doc == nil {
				return false
			}
			var out testRecord
			if err := json.Unmarshal(doc, &out); err != nil {
				return false
			}
			return out == in
		},
		gen.Identifier(),
		gen.AlphaString(),
		gen.Int64Range(0, 1<<45),
	))

	properties.TestingRun(t)
}

func TestCacheNamespaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.OpenCache(ctx, "v1"); err != nil {
		t.Fatal(err)
	}
	entry := &CachedResponse{
		URL:        "http://localhost/index.html",
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html"}},
		Body:       []byte("<html></html>"),
	}
	if err := s.PutCache(ctx, "v1", entry); err != nil {
		t.Fatal(err)
	}
	if err := s.PutCache(ctx, "v2", &CachedResponse{URL: entry.URL, StatusCode: 200, Body: []byte("new")}); err != nil {
		t.Fatal(err)
	}

	names, err := s.CacheNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("CacheNames = %v", names)
	}

	got, err := s.MatchCache(ctx, "v1", entry.URL)
	if err != nil || got == nil {
		t.Fatalf("MatchCache: %v %v", got, err)
	}
	if string(got.Body) != "<html></html>" || got.Header.Get("Content-Type") != "text/html" {
		t.Errorf("cached entry = %+v", got)
	}

	existed, err := s.DeleteCache(ctx, "v1")
	if err != nil || !existed {
		t.Fatalf("DeleteCache(v1) = %v, %v", existed, err)
	}
	if got, _ := s.MatchCache(ctx, "v1", entry.URL); got != nil {
		t.Errorf("entry survived namespace deletion")
	}
	if got, _ := s.MatchCache(ctx, "v2", entry.URL); got == nil || string(got.Body) != "new" {
		t.Errorf("other namespace affected")
	}
	existed, _ = s.DeleteCache(ctx, "v1")
	if existed {
		t.Errorf("second delete should report absent namespace")
	}
}

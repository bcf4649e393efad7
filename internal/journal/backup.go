package journal

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"closing-journal/internal/errors"
	"closing-journal/internal/store"
	"closing-journal/pkg/utils"
)

// exportedAtLayout matches ISO-8601 UTC timestamps with milliseconds.
const exportedAtLayout = "2006-01-02T15:04:05.000Z"

// Backup is the export/import file. Records are kept as raw documents so
// unknown fields survive a round trip.
type Backup struct {
	ExportedAt string            `json:"exportedAt"`
	Candidates []json.RawMessage `json:"candidates"`
	Trades     []json.RawMessage `json:"trades"`
	Settings   []json.RawMessage `json:"settings"`
}

// ImportResult counts the records upserted per collection.
type ImportResult struct {
	Candidates int `json:"candidates"`
	Trades     int `json:"trades"`
	Settings   int `json:"settings"`
}

// Total is the number of records written.
func (r ImportResult) Total() int {
	return r.Candidates + r.Trades + r.Settings
}

// Export snapshots every collection.
func (s *Service) Export(ctx context.Context) (*Backup, error) {
	b := &Backup{ExportedAt: s.clock().UTC().Format(exportedAtLayout)}
	var err error
	if b.Candidates, err = s.listRaw(ctx, store.Candidates); err != nil {
		return nil, err
	}
	if b.Trades, err = s.listRaw(ctx, store.Trades); err != nil {
		return nil, err
	}
	if b.Settings, err = s.listRaw(ctx, store.Settings); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteExport writes an indented export document to w.
func (s *Service) WriteExport(ctx context.Context, w io.Writer) error {
	b, err := s.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding export")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "writing export")
	}
	s.logger.Info().
		Int("candidates", len(b.Candidates)).
		Int("trades", len(b.Trades)).
		Int("settings", len(b.Settings)).
		Msg("Exported journal")
	return nil
}

// ExportFileName is the default export file name for the day of now.
func ExportFileName(now time.Time, loc *time.Location) string {
	return "closing-trade-" + utils.Today(now, loc) + ".json"
}

// Import upserts every element of the arrays present in r, as-is. A parse
// error aborts before anything is written; a storage error aborts at that
// record and earlier records stay written.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return res, errors.Wrap(err, "parsing import file")
	}

	steps := []struct {
		collection string
		docs       []json.RawMessage
		count      *int
	}{
		{store.Candidates, b.Candidates, &res.Candidates},
		{store.Trades, b.Trades, &res.Trades},
		{store.Settings, b.Settings, &res.Settings},
	}
	for _, step := range steps {
		for _, doc := range step.docs {
			if err := s.put(ctx, step.collection, doc); err != nil {
				return res, errors.Wrap(err, "import aborted")
			}
			*step.count++
		}
	}

	s.logger.Info().
		Int("candidates", res.Candidates).
		Int("trades", res.Trades).
		Int("settings", res.Settings).
		Msg("Imported journal")
	return res, nil
}

// ClearAll wipes every collection. confirmed must be true; otherwise
// ErrNotConfirmed is returned and nothing is touched.
func (s *Service) ClearAll(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return errors.ErrNotConfirmed
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return errors.NewStorageError("*", "clear", err)
	}
	s.logger.Warn().Msg("Cleared all local data")
	return nil
}

func (s *Service) listRaw(ctx context.Context, collection string) ([]json.RawMessage, error) {
	docs, err := s.store.ListAll(ctx, collection)
	if err != nil {
		return nil, errors.NewStorageError(collection, "list", err)
	}
	if docs == nil {
		docs = []json.RawMessage{}
	}
	return docs, nil
}

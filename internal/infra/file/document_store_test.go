package file

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	store := NewDocumentStore(fsys, "/data")

	if _, err := store.Load(ctx, app.LeaderboardDocument); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := store.Save(ctx, app.LeaderboardDocument, []byte(`{"entries":[]}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, app.LeaderboardDocument, []byte(`{"entries":null}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Load(ctx, app.LeaderboardDocument)
	if err != nil || string(got) != `{"entries":null}` {
		t.Fatalf("unexpected load %q (%v)", got, err)
	}

	entries, err := afero.ReadDir(fsys, store.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != app.LeaderboardDocument {
		t.Fatalf("temp files left behind: %v", names(entries))
	}
}

func TestDocumentStoreFailedSaveKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	base := afero.NewMemMapFs()
	if err := NewDocumentStore(base, "/data").Save(ctx, app.ProgressDocument, []byte("old")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	readOnly := NewDocumentStore(afero.NewReadOnlyFs(base), "/data")
	if err := readOnly.Save(ctx, app.ProgressDocument, []byte("new")); err == nil {
		t.Fatalf("expected read-only save to fail")
	}

	broken := NewDocumentStore(failingRenameFs{Fs: base}, "/data")
	if err := broken.Save(ctx, app.ProgressDocument, []byte("new")); err == nil {
		t.Fatalf("expected rename failure")
	}

	got, err := readOnly.Load(ctx, app.ProgressDocument)
	if err != nil || string(got) != "old" {
		t.Fatalf("previous document lost: %q (%v)", got, err)
	}
	entries, _ := afero.ReadDir(base, "/data")
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s not cleaned up", e.Name())
		}
	}
}

func TestDocumentStoreBacksStores(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentStore(afero.NewMemMapFs(), "/data")

	board := app.NewLeaderboardStore(ctx, docs)
	for _, s := range []int{30, 90, 60} {
		if err := board.AddScore("Ada", s); err != nil {
			t.Fatalf("add score: %v", err)
		}
	}

	reloaded := app.NewLeaderboardStore(ctx, docs).Entries()
	if len(reloaded) != 3 || reloaded[0].Score != 90 || reloaded[2].Score != 30 {
		t.Fatalf("leaderboard not restored: %+v", reloaded)
	}
}

type failingRenameFs struct {
	afero.Fs
}

func (failingRenameFs) Rename(string, string) error {
	return errors.New("disk full")
}

func names(entries []fs.FileInfo) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

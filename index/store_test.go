package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Luzifer/cag-extract/cag"
)

func testCatalog(source string, keywords ...string) *cag.Catalog {
	return &cag.Catalog{
		Source: source,
		Header: cag.CategoryHeader{CategoryCount: 2},
		Categories: []cag.Category{
			{Title: "(All Categories)", ClipIDs: []uint32{100, 7, 9}},
			{Title: "Animals", ClipIDs: []uint32{7}},
		},
		Declarations: []cag.Declaration{
			{
				RawDeclaration: cag.RawDeclaration{Type: 0x30, Filename: "cat.wmf", Subdirectory: `C:\`, Keywords: keywords},
				ID:             7,
				Categories:     []string{"Animals"},
			},
			{
				RawDeclaration: cag.RawDeclaration{Type: 0x30, Filename: "dog.wmf", Subdirectory: `C:\`, Keywords: []string{"canine"}},
				ID:             9,
				Categories:     []string{},
			},
		},
		TerminatingTag: 0xffffffff,
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	p := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(context.Background(), p)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s, p
}

func TestPutAndFind(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, testCatalog("a.cag", "feline", " Pet")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, testCatalog("b.cag", "pet")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clips, err := s.FindByKeyword(ctx, "PET")
	if err != nil {
		t.Fatalf("FindByKeyword failed: %v", err)
	}
	if len(clips) != 2 || clips[0].Source != "a.cag" || clips[1].Source != "b.cag" || clips[0].ClipID != 7 {
		t.Fatalf("unexpected keyword matches: %#v", clips)
	}

	clips, err = s.FindByCategory(ctx, "Animals")
	if err != nil {
		t.Fatalf("FindByCategory failed: %v", err)
	}
	if len(clips) != 2 || clips[0].Filename != "cat.wmf" {
		t.Fatalf("unexpected category matches: %#v", clips)
	}
}

func TestPutReplacesSource(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, testCatalog("a.cag", "feline")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, testCatalog("a.cag", "kitten")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	clips, err := s.FindByKeyword(ctx, "feline")
	if err != nil {
		t.Fatalf("FindByKeyword failed: %v", err)
	}
	if len(clips) != 0 {
		t.Fatalf("expected stale keyword to be gone, got %#v", clips)
	}

	for table, expect := range map[string]int{
		"catalogs":               1,
		"categories":             2,
		"category_clips":         4,
		"declarations":           2,
		"declaration_keywords":   2,
		"declaration_categories": 1,
	} {
		var count int
		if err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table).Scan(&count); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if count != expect {
			t.Errorf("Unexpected rows in %s: expect=%d result=%d", table, expect, count)
		}
	}
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Put(ctx, testCatalog("a.cag", "feline")); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}

		var enabled int
		if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("reading pragma: %v", err)
		}
		if enabled != 1 {
			t.Fatalf("foreign keys disabled after %d writes", i+1)
		}
	}

	var orphans int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM declaration_keywords WHERE catalog_id NOT IN (SELECT id FROM catalogs)",
	).Scan(&orphans); err != nil {
		t.Fatalf("counting orphans: %v", err)
	}
	if orphans != 0 {
		t.Errorf("found %d orphaned keyword rows", orphans)
	}
}

func TestSchemaMismatch(t *testing.T) {
	s, p := openTestStore(t)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("changing schema version: %v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, p); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

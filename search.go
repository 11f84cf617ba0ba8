package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Luzifer/cag-extract/index"
	"github.com/Luzifer/go_helpers/v2/str"
	"github.com/mattn/go-isatty"
)

const (
	searchByCategory = "category"
	searchByKeyword  = "keyword"
)

var (
	searchHeaders = []string{"Catalog", "ID", "Filename", "Subdirectory"}
	searchKinds   = []string{searchByCategory, searchByKeyword}
)

// runSearch looks up clips in the catalog index by keyword or category
func runSearch(s settings, args []string) error {
	if len(args) != 2 || !str.StringInSlice(args[0], searchKinds) { //nolint:mnd
		return errors.New("usage: search <keyword|category> <term>")
	}

	if s.indexDB == "" {
		return errors.New("no index configured, set --index-db or index_db in the profile")
	}

	if _, err := os.Stat(s.indexDB); err != nil {
		return fmt.Errorf("accessing index: %w", err)
	}

	ctx := context.Background()

	idx, err := index.Open(ctx, s.indexDB)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer idx.Close() //nolint:errcheck // nothing written

	rows, err := searchRows(ctx, idx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Println(renderTable(searchHeaders, rows, isatty.IsTerminal(os.Stdout.Fd()))) //nolint:forbidigo // Intended to print search results
	return nil
}

func searchRows(ctx context.Context, idx *index.Store, kind, term string) ([][]string, error) {
	var (
		clips []index.Clip
		err   error
	)

	switch kind {
	case searchByCategory:
		clips, err = idx.FindByCategory(ctx, term)
	case searchByKeyword:
		clips, err = idx.FindByKeyword(ctx, term)
	default:
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	rows := make([][]string, 0, len(clips))
	for _, c := range clips {
		rows = append(rows, []string{
			c.Source,
			strconv.FormatUint(uint64(c.ClipID), 10),
			c.Filename,
			c.Subdirectory,
		})
	}
	return rows, nil
}

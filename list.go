package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Luzifer/cag-extract/cag"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var listHeaders = []string{"Catalog", "ID", "Type", "Filename", "Subdirectory", "Keywords", "Categories"}

// runList prints one row per clip declaration of the given catalogs
func runList(s settings, inputs []string) error {
	if len(inputs) == 0 {
		return errors.New("usage: list <catalog>...")
	}

	var (
		decoder = cag.Decoder{Encoding: s.encoding}
		rows    [][]string
		failed  int
	)

	for _, input := range inputs {
		c, err := decoder.Open(input)
		if err != nil {
			logrus.WithError(err).WithField("catalog", input).Error("decoding catalog")
			failed++
			continue
		}
		rows = append(rows, listRows(c)...)
	}

	fmt.Println(renderTable(listHeaders, rows, isatty.IsTerminal(os.Stdout.Fd()))) //nolint:forbidigo // Intended to print clip list

	if failed > 0 {
		return fmt.Errorf("%d of %d catalogs failed", failed, len(inputs))
	}

	return nil
}

func listRows(c *cag.Catalog) [][]string {
	rows := make([][]string, 0, len(c.Declarations))
	for _, d := range c.Declarations {
		rows = append(rows, []string{
			filepath.Base(c.Source),
			strconv.FormatUint(uint64(d.ID), 10),
			fmt.Sprintf("%#x", uint32(d.Type)),
			d.Filename,
			d.Subdirectory,
			strings.Join(d.Keywords, ", "),
			strings.Join(d.Categories, ", "),
		})
	}
	return rows
}

// renderTable renders a rounded table for terminals and TSV otherwise
// to keep the output usable in pipes
func renderTable(headers []string, rows [][]string, terminal bool) string {
	columns := len(headers)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft}, //nolint:mnd // ID column
	})

	if !terminal {
		return tw.RenderTSV()
	}
	return tw.Render()
}

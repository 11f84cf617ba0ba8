package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Luzifer/cag-extract/cag"
	"github.com/Luzifer/cag-extract/export"
	"github.com/Luzifer/cag-extract/index"
	"github.com/Luzifer/go_helpers/v2/str"
	"github.com/Luzifer/rconfig/v2"
	"github.com/sirupsen/logrus"
)

const (
	dirPermissions = 0o750

	cmdList     = "list"
	cmdOffice97 = "office97"
	cmdSearch   = "search"

	// Terminating tags this small look like record types rather than
	// junk and might be record types not known yet
	suspiciousTagLimit = 0x100
)

var (
	cfg = struct {
		Config         string `flag:"config,c" default:"" description:"TOML profile with deployment defaults (encoding, format, palette, index_db); unset keeps the built-in defaults"`
		Encoding       string `flag:"encoding,e" default:"" description:"IANA name of the text encoding of the catalogs (unset: ISO-8859-1, the US English catalogs)"`
		Format         string `flag:"format,f" default:"" description:"Format of the metadata document (json, yaml; unset: json)"`
		IndexDB        string `flag:"index-db" default:"" description:"SQLite database to store decoded catalogs in and to search (unset: no index is written)"`
		LogLevel       string `flag:"log-level" default:"info" description:"Log level (debug, info, warn, error, fatal)"`
		Palette        string `flag:"palette,p" default:"" description:"Palette for exported thumbnails (gray, plan9, websafe; unset: gray)"`
		VersionAndExit bool   `flag:"version" default:"false" description:"Prints current version and exits"`
	}{}

	subcommands = []string{cmdList, cmdOffice97, cmdSearch}

	version = "dev"
)

func initApp() (err error) {
	if err = rconfig.ParseAndValidate(&cfg); err != nil {
		return fmt.Errorf("parsing CLI options: %w", err)
	}

	l, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log-level: %w", err)
	}
	logrus.SetLevel(l)

	return nil
}

func main() {
	var err error
	if err = initApp(); err != nil {
		logrus.WithError(err).Fatal("initializing app")
	}

	if cfg.VersionAndExit {
		fmt.Printf("cag-extract %s\n", version) //nolint:forbidigo
		os.Exit(0)
	}

	args := rconfig.Args()[1:]
	if len(args) == 0 || !str.StringInSlice(args[0], subcommands) {
		logrus.Fatalf("no subcommand given, use one of %v", subcommands)
	}

	s, err := loadSettings()
	if err != nil {
		logrus.WithError(err).Fatal("loading settings")
	}

	switch args[0] {
	case cmdList:
		err = runList(s, args[1:])

	case cmdOffice97:
		err = runExtract(s, args[1:])

	case cmdSearch:
		err = runSearch(s, args[1:])
	}

	if err != nil {
		logrus.WithError(err).Fatal("processing catalogs")
	}
}

// runExtract decodes every given catalog and exports it into the
// directory given as last argument
//
//nolint:gocyclo // simple loop routine, fine to understand
func runExtract(s settings, args []string) error {
	if len(args) < 2 { //nolint:mnd
		return errors.New("usage: office97 <catalog>... <export directory>")
	}

	var (
		inputs = args[:len(args)-1]
		dest   = args[len(args)-1]
	)

	destInfo, err := os.Stat(dest)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("accessing destination: %w", err)
		}

		if err = os.MkdirAll(dest, dirPermissions); err != nil {
			return fmt.Errorf("creating destination directory: %w", err)
		}
	}

	if destInfo != nil && !destInfo.IsDir() {
		return errors.New("destination exists and is no directory")
	}

	unlock, err := export.Lock(dest)
	if err != nil {
		return fmt.Errorf("locking destination: %w", err)
	}
	defer unlock() //nolint:errcheck // released on exit anyway

	var idx *index.Store
	if s.indexDB != "" {
		if idx, err = index.Open(context.Background(), s.indexDB); err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		defer idx.Close() //nolint:errcheck // read-only after commit
	}

	var (
		decoder  = cag.Decoder{Encoding: s.encoding}
		exporter = &export.Exporter{
			Dir:     dest,
			Format:  s.format,
			Palette: s.palette,
			OnFile: func(p string, overwritten bool) {
				if overwritten {
					logrus.WithField("file", p).Warn("file overwritten by another clip or catalog with the same name")
					return
				}
				logrus.WithField("file", p).Debug("file written")
			},
		}
		failed int
	)

	for _, input := range inputs {
		logger := logrus.WithField("catalog", input)

		c, err := decoder.Open(input)
		if err != nil {
			logger.WithError(err).Error("decoding catalog")
			failed++
			continue
		}
		logTermination(logger, c)

		if err = exporter.Export(c); err != nil {
			logger.WithError(err).Error("exporting catalog")
			failed++
			continue
		}

		if idx != nil {
			if err = idx.Put(context.Background(), c); err != nil {
				logger.WithError(err).Error("indexing catalog")
				failed++
				continue
			}
		}

		logger.WithFields(logrus.Fields{
			"categories":   len(c.Categories),
			"declarations": len(c.Declarations),
		}).Info("catalog extracted")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d catalogs failed", failed, len(inputs))
	}

	return nil
}

func logTermination(logger *logrus.Entry, c *cag.Catalog) {
	logger = logger.WithFields(logrus.Fields{
		"tag":        fmt.Sprintf("%#x", uint32(c.TerminatingTag)),
		"junk_bytes": len(c.ThumbJunk),
	})

	if c.TerminatingTag != 0 && c.TerminatingTag < suspiciousTagLimit {
		logger.Warn("declarations ended by a tag looking like an unknown record type")
		return
	}

	logger.Debug("declarations ended")
}

package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/zoobzio/nexus"
	"github.com/zoobzio/nexus/config"
	"github.com/zoobzio/nexus/journal"
)

// session is a configured manager plus the resources it needs released.
type session struct {
	manager *nexus.Manager
	journal *journal.Store
	logger  *slog.Logger
}

// openSession loads the config (or the default one), builds the manager and
// attaches the journal when one is configured. The --journal flag overrides
// the file's journal setting.
func openSession(opts *options, logOut io.Writer) (*session, error) {
	file := config.Default()
	if opts.configPath != "" {
		var err error
		if file, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.journalPath != "" {
		file.Journal = opts.journalPath
	}

	logger, err := file.Logger(logOut)
	if err != nil {
		return nil, err
	}
	m, err := config.Build(config.DefaultRegistry(), file, logger)
	if err != nil {
		return nil, err
	}

	s := &session{manager: m, logger: logger}
	if file.Journal != "" {
		if err := s.attachJournal(file.Journal); err != nil {
			m.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *session) attachJournal(path string) error {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	s.journal = store
	s.logger.Debug("journal opened", "path", path)
	return nil
}

// record journals every link of res. It is a no-op without a journal.
func (s *session) record(ctx context.Context, res nexus.ChainResult) error {
	if s.journal == nil {
		return nil
	}
	for _, link := range res.Links {
		kind := nexus.KindGeneric
		if p, ok := s.manager.Pipeline(link.Pipeline); ok {
			kind = p.Kind()
		}
		if err := s.journal.Record(ctx, journal.EntryFromOutcome(link, kind, time.Now())); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the manager and the journal.
func (s *session) Close() error {
	err := s.manager.Close()
	if s.journal != nil {
		if jerr := s.journal.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

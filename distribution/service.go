package distribution

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// Service owns every mutation of pallets, inventory, demand lines and
// containers. Each exported operation either commits completely or leaves
// storage untouched.
type Service struct {
	db        *store.DB
	cfg       config.ContainerConfig
	emitter   Emitter
	announcer Announcer
	log       *zap.SugaredLogger
}

type Option func(*Service)

func WithEmitter(e Emitter) Option     { return func(s *Service) { s.emitter = e } }
func WithAnnouncer(a Announcer) Option { return func(s *Service) { s.announcer = a } }
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(db *store.DB, cfg config.ContainerConfig, opts ...Option) *Service {
	s := &Service{
		db:        db,
		cfg:       cfg,
		emitter:   nopEmitter{},
		announcer: nopAnnouncer{},
		log:       zap.NewNop().Sugar(),
	}
	if s.cfg.MaxAttempts <= 0 {
		s.cfg.MaxAttempts = 3
	}
	if s.cfg.Digits <= 0 {
		s.cfg.Digits = 8
	}
	if s.cfg.Prefix == "" {
		s.cfg.Prefix = "22O"
	}
	if s.cfg.SurplusPrefix == "" {
		s.cfg.SurplusPrefix = "SOB"
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) DB() *store.DB { return s.db }

// notFound converts sql.ErrNoRows into the NotFound kind and leaves other
// errors wrapped as-is.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

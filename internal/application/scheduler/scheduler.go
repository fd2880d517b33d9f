package scheduler

import (
	"context"
	"time"

	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// Job proceso periódico parametrizado por sede (barrido, notificaciones).
type Job interface {
	OnTick(ctx context.Context, siteID int64) error
}

// JobFunc adapta una función a Job.
type JobFunc func(ctx context.Context, siteID int64) error

// OnTick implementa Job.
func (f JobFunc) OnTick(ctx context.Context, siteID int64) error { return f(ctx, siteID) }

// Scheduler ejecuta un Job sobre todas las sedes en cada tick del intervalo.
// Las sedes se procesan en secuencia; el fallo de una no detiene las demás.
type Scheduler struct {
	name     string
	job      Job
	sites    repository.SiteRepository
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// New crea un planificador para job.
func New(name string, job Job, sites repository.SiteRepository, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		job:      job,
		sites:    sites,
		interval: interval,
		logger:   log.Named(name),
	}
}

// Start lanza el ciclo en segundo plano; ejecuta un ciclo inmediato y luego uno por tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("planificador iniciado")

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("planificador detenido")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancela el ciclo y espera a que termine el tick en curso.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// RunOnce ejecuta un ciclo completo sobre todas las sedes y devuelve cuántas fallaron.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	start := time.Now()

	siteIDs, err := s.sites.ListIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("no se pudieron listar las sedes")
		return 0
	}

	failed := 0
	for _, siteID := range siteIDs {
		if ctx.Err() != nil {
			break
		}
		if err := s.job.OnTick(ctx, siteID); err != nil {
			failed++
			s.logger.Error().Err(err).Int64("site_id", siteID).Msg("ciclo fallido para la sede")
		}
	}

	s.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("site_count", len(siteIDs)).
		Int("failed", failed).
		Msg("ciclo completado")
	return failed
}

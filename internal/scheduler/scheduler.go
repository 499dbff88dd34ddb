package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MirrorRebuilder regenerates a script mirror from its structured data file.
type MirrorRebuilder interface {
	RebuildMirror() error
}

// Target is a named mirror to keep in sync.
type Target struct {
	Name   string
	Mirror MirrorRebuilder
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	sched  *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sched:  cron.New(cron.WithParser(cronParser)),
		logger: logger.Named("scheduler"),
	}
}

// AddMirrorResync regenerates every target's mirror on the given schedule, so a mirror
// left stale by a failed write or edited by hand is brought back in line with its data file.
func (s *Scheduler) AddMirrorResync(spec string, targets ...Target) error {
	if _, err := s.sched.AddFunc(spec, func() { s.ResyncMirrors(targets...) }); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	s.logger.Info("mirror resync scheduled", zap.String("schedule", spec), zap.Int("targets", len(targets)))
	return nil
}

// ResyncMirrors rebuilds each target in order. A failing target does not stop the others.
// It returns the number of targets rebuilt.
func (s *Scheduler) ResyncMirrors(targets ...Target) (rebuilt int) {
	for _, t := range targets {
		if s.rebuild(t) {
			rebuilt++
		}
	}
	return rebuilt
}

func (s *Scheduler) rebuild(t Target) (ok bool) {
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("mirror resync panicked", zap.String("target", t.Name), zap.Any("panic", err))
			ok = false
		}
	}()
	if err := t.Mirror.RebuildMirror(); err != nil {
		s.logger.Warn("mirror resync failed", zap.String("target", t.Name), zap.Error(err))
		return false
	}
	s.logger.Debug("mirror resynced", zap.String("target", t.Name))
	return true
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.sched.Stop()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"github.com/robfig/cron/v3"

	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

// CloneSweeper deletes clones this service created that outlived maxAge.
// Those are left behind when generation fails after a successful clone.
type CloneSweeper struct {
	provider voice.Provider
	guard    SlotGuard
	maxAge   time.Duration
	timeout  time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

func NewCloneSweeper(provider voice.Provider, guard SlotGuard, maxAge time.Duration) *CloneSweeper {
	if guard == nil {
		guard = NoSlotGuard()
	}
	return &CloneSweeper{
		provider: provider,
		guard:    guard,
		maxAge:   maxAge,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

// CloneCreatedAt extracts the creation time encoded by NewCloneName.
func CloneCreatedAt(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, CloneNamePrefix)
	if !ok {
		return time.Time{}, false
	}
	ts, _, _ := strings.Cut(rest, "_")
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Sweep runs one pass. Delete failures do not stop the pass.
func (cs *CloneSweeper) Sweep(ctx context.Context) (int, error) {
	release, err := cs.guard.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	voices, err := cs.provider.ListClonedVoices(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing cloned voices: %w", err)
	}

	cutoff := cs.now().Add(-cs.maxAge)
	var errs []error
	deleted := 0
	for _, v := range voices {
		created, ok := CloneCreatedAt(v.Name)
		if !ok || created.After(cutoff) {
			continue
		}
		if err := cs.provider.DeleteClonedVoice(ctx, v.ID); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s: %w", v.ID, err))
			continue
		}
		deleted++
		xlog.Info("swept orphaned clone", "voice", v.ID, "name", v.Name, "age", cs.now().Sub(created))
	}
	return deleted, errors.Join(errs...)
}

// Start schedules Sweep with a cron spec such as "@every 1h".
func (cs *CloneSweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cs.timeout)
		defer cancel()
		n, err := cs.Sweep(ctx)
		if err != nil {
			xlog.Error("clone sweep failed", "error", err, "deleted", n)
			return
		}
		xlog.Debug("clone sweep finished", "deleted", n)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	cs.cron = c
	c.Start()
	return nil
}

func (cs *CloneSweeper) Stop() {
	if cs.cron != nil {
		<-cs.cron.Stop().Done()
	}
}

package room

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/gridhall/tictac-arena/internal/obslog"
)

// StartReaper runs a periodic sweep that prunes open-index entries whose
// room document has expired. Room documents carry their own TTL, so the
// documents themselves never need reaping; only the index can accumulate
// codes pointing at nothing.
func StartReaper(store *Store, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { sweepOpenIndex(store) }),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

func sweepOpenIndex(store *Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	codes, err := store.OpenCodes(ctx)
	if err != nil {
		obslog.L().Warn("reaper_list_error", zap.Error(err))
		return
	}
	pruned := 0
	for _, code := range codes {
		ok, err := store.Exists(ctx, code)
		if err != nil {
			obslog.L().Warn("reaper_check_error", zap.String("code", code), zap.Error(err))
			continue
		}
		if !ok {
			if err := store.RemoveOpen(ctx, code); err == nil {
				pruned++
			}
		}
	}
	if pruned > 0 {
		obslog.L().Info("reaper_sweep", zap.Int("pruned", pruned))
	}
}

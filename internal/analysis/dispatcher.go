package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
)

// DispatchConfig carries the catch-up tuning knobs, grounded on
// run_due_analyses' ANALYSIS_DAILY_HOUR_LOCAL / ANALYSIS_MAX_CATCHUP_WINDOWS*
// / ANALYSIS_WEEKLY_WEEKDAY_LOCAL / ANALYSIS_MONTHLY_DAY_LOCAL env vars.
type DispatchConfig struct {
	DailyHourLocal        int
	MaxCatchupWindows     int
	MaxCatchupWindowsChat int
	WeeklyWeekdayLocal    time.Weekday
	MonthlyDayLocal       int
}

func (c DispatchConfig) withDefaults() DispatchConfig {
	if c.DailyHourLocal <= 0 {
		c.DailyHourLocal = 5
	}
	if c.MaxCatchupWindows <= 0 {
		c.MaxCatchupWindows = 7
	}
	if c.MaxCatchupWindowsChat <= 0 {
		c.MaxCatchupWindowsChat = 2
	}
	if c.MonthlyDayLocal <= 0 {
		c.MonthlyDayLocal = 1
	}
	return c
}

// RunDueAnalysesForUser runs every daily/weekly/monthly window that is due
// as of now for userID, catching up on the most recent windows (bounded by
// cfg) and running them oldest first, matching run_due_analyses_for_user_id. isChatTrigger narrows the
// catch-up window to MaxCatchupWindowsChat, matching the Python
// distinction between a background sweep and an inline chat-triggered
// catch-up.
func (e *Engine) RunDueAnalysesForUser(ctx context.Context, userID int64, cfg DispatchConfig, isChatTrigger bool) ([]*domain.AnalysisRun, error) {
	cfg = cfg.withDefaults()

	settings, err := e.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	tzName := settings.Timezone
	if tzName == "" {
		tzName = "UTC"
	}

	now := time.Now().UTC()
	localNow := now
	if loc, lerr := time.LoadLocation(tzName); lerr == nil {
		localNow = now.In(loc)
	}
	referenceDay := timeinfer.TodayInTZ(&now, tzName)
	if localNow.Hour() < cfg.DailyHourLocal {
		referenceDay = referenceDay.AddDate(0, 0, -1)
	}

	maxWindows := cfg.MaxCatchupWindows
	if isChatTrigger {
		maxWindows = cfg.MaxCatchupWindowsChat
	}

	var runs []*domain.AnalysisRun
	for _, runType := range []domain.RunType{domain.RunDaily, domain.RunWeekly, domain.RunMonthly} {
		lastDone, err := e.store.LastCompletedPeriodEnd(ctx, userID, runType)
		if err != nil {
			return runs, err
		}
		targets := candidateDueTargets(runType, referenceDay, maxWindows, cfg.WeeklyWeekdayLocal, cfg.MonthlyDayLocal)
		for _, target := range targets {
			if lastDone != nil && !target.After(*lastDone) {
				continue
			}
			run, alreadyDone, err := e.RunLongitudinalAnalysis(ctx, userID, runType, target, triggerFor(isChatTrigger), false)
			if err != nil {
				return runs, err
			}
			if !alreadyDone {
				runs = append(runs, run)
			}
		}
	}
	return runs, nil
}

func triggerFor(isChatTrigger bool) string {
	if isChatTrigger {
		return "chat_catchup"
	}
	return "scheduled"
}

// Dispatcher periodically sweeps every active user for due analyses using
// github.com/robfig/cron/v3, guarding against overlapping sweeps for the
// same user with an in-flight set, grounded on the catch-up loop embedded
// in run_due_analyses.
type Dispatcher struct {
	engine *Engine
	log    telemetry.Logger
	cfg    DispatchConfig

	cron *cron.Cron

	mu       sync.Mutex
	inFlight map[int64]bool
}

// NewDispatcher builds a Dispatcher bound to engine.
func NewDispatcher(engine *Engine, log telemetry.Logger, cfg DispatchConfig) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		log:      log,
		cfg:      cfg.withDefaults(),
		cron:     cron.New(),
		inFlight: make(map[int64]bool),
	}
}

// Start schedules a sweep on spec (standard 5-field cron syntax) and
// begins running it in the background. Call Stop to end it.
func (d *Dispatcher) Start(ctx context.Context, spec string) error {
	_, err := d.cron.AddFunc(spec, func() { d.sweepOnce(ctx) })
	if err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

// Stop halts the scheduled sweep, waiting for any in-progress run to
// finish.
func (d *Dispatcher) Stop() {
	stopCtx := d.cron.Stop()
	<-stopCtx.Done()
}

func (d *Dispatcher) sweepOnce(ctx context.Context) {
	userIDs, err := d.engine.store.ListActiveUserIDs(ctx)
	if err != nil {
		d.log.Error(ctx, "dispatcher: list active users failed", "error", err)
		return
	}
	for _, userID := range userIDs {
		if !d.claim(userID) {
			continue
		}
		go func(uid int64) {
			defer d.release(uid)
			if _, err := d.engine.RunDueAnalysesForUser(ctx, uid, d.cfg, false); err != nil {
				d.log.Error(ctx, "dispatcher: catch-up run failed", "user_id", uid, "error", err)
			}
		}(userID)
	}
}

// TriggerForUser asynchronously runs any due catch-up analyses for userID
// and returns immediately. It shares the sweep's in-flight guard, so a
// chat-triggered catch-up silently no-ops instead of racing a concurrent
// sweep for the same user (turn pipeline step 16: single-flight per user,
// never blocks the turn). There is no time-based debounce: once the
// previous run for the user has finished, the next call starts a new one
// immediately. The background run detaches from ctx's
// cancellation so it survives the request that triggered it, but keeps its
// values (trace/log correlation).
func (d *Dispatcher) TriggerForUser(ctx context.Context, userID int64) {
	if !d.claim(userID) {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer d.release(userID)
		if _, err := d.engine.RunDueAnalysesForUser(bg, userID, d.cfg, true); err != nil {
			d.log.Error(bg, "dispatcher: chat-triggered catch-up failed", "user_id", userID, "error", err)
		}
	}()
}

func (d *Dispatcher) claim(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[userID] {
		return false
	}
	d.inFlight[userID] = true
	return true
}

func (d *Dispatcher) release(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, userID)
}

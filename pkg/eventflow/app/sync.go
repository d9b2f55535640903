package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/client"
	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	"github.com/code-payments/eventflow/pkg/eventflow/session"
	"github.com/code-payments/eventflow/pkg/eventflow/syncstore"
	memory_wishlist "github.com/code-payments/eventflow/pkg/eventflow/wishlist/memory"
	"github.com/code-payments/eventflow/pkg/metrics"
	"github.com/code-payments/eventflow/pkg/retry"
	"github.com/code-payments/eventflow/pkg/retry/backoff"
)

const (
	stateCheckInterval = time.Second

	// A subscription that stayed up this long resets the resync backoff
	healthySyncDuration = time.Minute
)

var errSyncInterrupted = errors.New("sync interrupted")

type syncApp struct {
	log    *logrus.Entry
	config Config

	ctx    context.Context
	cancel context.CancelFunc

	backends *backends
	client   *client.Client
	cron     *cron.Cron

	wg         sync.WaitGroup
	stopOnce   sync.Once
	shutdownCh chan struct{}
}

// NewSyncApp returns an App that keeps the active user's events synced,
// optionally exporting them to an iCalendar file on a schedule
func NewSyncApp() App {
	return &syncApp{
		log:        logrus.StandardLogger().WithField("type", "eventflow/app/sync"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements App.Init
func (a *syncApp) Init(config Config, metricsProvider *newrelic.Application) error {
	a.config = config

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return errors.Wrapf(err, "invalid timezone %s", config.Timezone)
	}

	a.ctx, a.cancel = context.WithCancel(metrics.NewContext(context.Background(), metricsProvider))

	a.backends, err = newBackends(a.ctx, config)
	if err != nil {
		a.cancel()
		a.cancel = nil
		return err
	}

	events := syncstore.New(a.backends.remote, a.backends.identity)
	cache := session.New(events, a.backends.remote, memory_wishlist.New(), session.WithEnvConfigs())
	a.client = client.New(events, cache, location)

	if len(config.ExportSchedule) > 0 {
		a.cron = cron.New(cron.WithLocation(location))
		if _, err := a.cron.AddFunc(config.ExportSchedule, a.exportCalendar); err != nil {
			a.client.Close()
			a.backends.close()
			a.cancel()
			a.cron = nil
			a.cancel = nil
			return errors.Wrap(err, "invalid export schedule")
		}
		a.cron.Start()
	}

	a.wg.Add(2)
	go a.logSnapshots()
	go a.keepSyncing()

	a.log.WithFields(logrus.Fields{
		"remote":   config.RemoteBackend,
		"identity": config.IdentityProvider,
	}).Info("sync app initialized")
	return nil
}

// ShutdownChan implements App.ShutdownChan
func (a *syncApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements App.Stop
func (a *syncApp) Stop() {
	a.stopOnce.Do(func() {
		if a.cancel == nil {
			return
		}

		if a.cron != nil {
			<-a.cron.Stop().Done()
		}

		a.cancel()
		a.client.Close()
		a.wg.Wait()

		// Flush the latest snapshot on the way out
		if a.cron != nil {
			a.exportCalendar()
		}

		if err := a.backends.close(); err != nil {
			a.log.WithError(err).Warn("failure closing backends")
		}
	})
}

// keepSyncing re-subscribes whenever the subscription is cancelled, backing
// off while it keeps failing. It closes the shutdown channel if sync can
// never start, such as when nobody is signed in.
func (a *syncApp) keepSyncing() {
	defer a.wg.Done()

	log := a.log.WithField("method", "keepSyncing")

	err := retry.Loop(
		a.syncUntilInterrupted,
		retry.UntilDone(a.ctx),
		retry.RetriableWhen(func(err error) bool {
			return !errors.Is(err, identity.ErrUnauthenticated)
		}),
		retry.BackoffWithContext(a.ctx, backoff.BinaryExponential(a.config.ResyncBackoff), a.config.ResyncMaxBackoff),
	)
	if a.ctx.Err() != nil {
		return
	}

	log.WithError(err).Error("events can no longer be synced")
	close(a.shutdownCh)
}

// syncUntilInterrupted begins syncing, then blocks until the subscription
// stops. Only a missing active user is permanent.
func (a *syncApp) syncUntilInterrupted() error {
	log := a.log.WithField("method", "syncUntilInterrupted")

	startedAt := time.Now()

	fetchCtx, endTxn := metrics.StartTransaction(a.ctx, "eventflow/sync/FetchEvents")
	err := a.client.FetchEvents(fetchCtx)
	endTxn()
	if err != nil {
		if a.ctx.Err() != nil {
			return a.ctx.Err()
		}
		log.WithError(err).Warn("failure starting sync")
		return err
	}

	ticker := time.NewTicker(stateCheckInterval)
	defer ticker.Stop()

	for a.client.SyncState() == syncstore.StateSyncing {
		select {
		case <-a.ctx.Done():
			return a.ctx.Err()
		case <-ticker.C:
		}
	}

	if a.ctx.Err() != nil {
		return a.ctx.Err()
	}

	log.WithField("state", a.client.SyncState().String()).Info("sync interrupted, resubscribing")
	if time.Since(startedAt) > healthySyncDuration {
		return nil
	}
	return errSyncInterrupted
}

func (a *syncApp) logSnapshots() {
	defer a.wg.Done()

	log := a.log.WithField("method", "logSnapshots")

	for snapshot := range a.client.Events(a.ctx) {
		log.WithFields(logrus.Fields{
			"user":    snapshot.UserId,
			"count":   snapshot.Len(),
			"version": snapshot.Version,
		}).Info("events updated")
	}
}

func (a *syncApp) exportCalendar() {
	log := a.log.WithFields(logrus.Fields{
		"method": "exportCalendar",
		"path":   a.config.ExportPath,
	})

	ctx, endTxn := metrics.StartTransaction(a.ctx, "eventflow/export/Calendar")
	defer endTxn()

	start := time.Now()
	if err := writeCalendarFile(a.client, a.config.ExportPath); err != nil {
		log.WithError(err).Warn("failure exporting calendar")
		metrics.RecordEvent(ctx, "CalendarExport", map[string]interface{}{"success": false})
		return
	}

	metrics.RecordDuration(ctx, "CalendarExport/duration", time.Since(start))
	metrics.RecordEvent(ctx, "CalendarExport", map[string]interface{}{"success": true})
	log.Debug("calendar exported")
}

// writeCalendarFile replaces the file at path in a single rename, so readers
// never see a partial calendar
func writeCalendarFile(c *client.Client, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".eventflow-*.ics")
	if err != nil {
		return errors.Wrap(err, "error creating temporary file")
	}
	defer os.Remove(tmp.Name())

	if err := c.ExportCalendar(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temporary file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "error replacing calendar file")
	}
	return nil
}

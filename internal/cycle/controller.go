package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/poll"
	"github.com/Guizzs26/attendance_poll_bot/internal/store"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

var ErrNoInterval = errors.New("recurring poll needs a positive interval")

// Renderer turns a tally into an image artifact and returns its path.
type Renderer interface {
	Render(snap tally.Snapshot) (string, error)
}

// Broadcaster receives the tally after it changes.
type Broadcaster interface {
	Publish(snap tally.Snapshot)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(tally.Snapshot) {}

// Deps wires a Controller. Archive, Publisher and Broadcaster are optional.
type Deps struct {
	Gateway     gateway.Gateway
	Store       *tally.Store
	Renderer    Renderer
	Archive     store.ReportArchive
	Publisher   event.VotePublisher
	Broadcaster Broadcaster
	Metrics     *metrics.BotMetrics
	Logger      *zap.Logger
	Channel     string
}

// Controller drives the poll through its open and closed phases. It owns the
// reset boundary of the store.
type Controller struct {
	gw          gateway.Gateway
	store       *tally.Store
	renderer    Renderer
	archive     store.ReportArchive
	publisher   event.VotePublisher
	broadcaster Broadcaster
	metrics     *metrics.BotMetrics
	logger      *zap.Logger
	channel     string
	now         func() time.Time

	// reportMu serializes render and upload; the chart lives at one fixed path.
	reportMu sync.Mutex
}

func NewController(d Deps) *Controller {
	c := &Controller{
		gw:          d.Gateway,
		store:       d.Store,
		renderer:    d.Renderer,
		archive:     d.Archive,
		publisher:   d.Publisher,
		broadcaster: d.Broadcaster,
		metrics:     d.Metrics,
		logger:      d.Logger,
		channel:     d.Channel,
		now:         time.Now,
	}
	if c.archive == nil {
		c.archive = store.NopArchive{}
	}
	if c.publisher == nil {
		c.publisher = event.NopPublisher{}
	}
	if c.broadcaster == nil {
		c.broadcaster = nopBroadcaster{}
	}
	return c
}

// StartCycle posts the poll prompt. A failed send is logged and the poll is
// considered open anyway.
func (c *Controller) StartCycle(ctx context.Context) {
	c.logger.Info("sending poll message", zap.String("channel", c.channel))
	c.metrics.Cycles.WithLabelValues("open").Inc()

	if err := c.gw.PostMessage(ctx, c.channel, poll.Prompt(c.store.Categories())); err != nil {
		c.metrics.GatewayFailures.WithLabelValues("post_prompt").Inc()
		c.logger.Error("failed to send poll message", zap.Error(err))
		return
	}
	c.logger.Info("poll message sent")
}

// EndCycle reports the current tally and then resets it. The reset happens
// whether or not the report reached the channel.
func (c *Controller) EndCycle(ctx context.Context) model.Report {
	snap := c.store.Snapshot()
	report := model.Report{
		ID:       uuid.NewString(),
		ClosedAt: c.now().UTC(),
		Counts:   snap,
	}
	c.logger.Info("closing poll",
		zap.String("report_id", report.ID),
		zap.Any("counts", snap),
	)
	c.metrics.Cycles.WithLabelValues("closed").Inc()

	c.report(ctx, snap)

	if err := c.archive.SaveReport(ctx, report); err != nil {
		c.logger.Error("failed to archive report", zap.String("report_id", report.ID), zap.Error(err))
	}

	c.store.Reset()
	c.logger.Info("cleared tally and voter selections")
	c.broadcaster.Publish(tally.Snapshot{})

	ev := model.VoteEvent{ID: report.ID, Kind: model.EventReset, Timestamp: report.ClosedAt}
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.logger.Warn("failed to publish reset event", zap.Error(err))
	}

	return report
}

// Flush renders and uploads the current tally without resetting it. Used on
// shutdown.
func (c *Controller) Flush(ctx context.Context) {
	snap := c.store.Snapshot()
	c.logger.Info("flushing current tally", zap.Any("counts", snap))
	c.report(ctx, snap)
}

func (c *Controller) report(ctx context.Context, snap tally.Snapshot) {
	c.reportMu.Lock()
	defer c.reportMu.Unlock()

	path, err := c.renderer.Render(snap)
	if err != nil {
		c.logger.Error("failed to render tally", zap.Error(err))
		return
	}

	if err := c.gw.UploadFile(ctx, c.channel, path, poll.ReportCaption); err != nil {
		c.metrics.GatewayFailures.WithLabelValues("upload_report").Inc()
		c.logger.Error("failed to upload report", zap.String("path", path), zap.Error(err))
		return
	}
	c.logger.Info("report uploaded", zap.String("path", path))
}

// Run alternates StartCycle and EndCycle, waiting interval after each, until
// ctx is done. Cancellation interrupts either wait and skips the rest of the
// cycle.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrNoInterval
	}
	c.logger.Info("recurring poll started", zap.Duration("interval", interval))

	for {
		c.StartCycle(ctx)
		if !wait(ctx, interval) {
			break
		}
		c.EndCycle(ctx)
		if !wait(ctx, interval) {
			break
		}
	}

	c.logger.Info("recurring poll stopped")
	return nil
}

// wait reports whether the full interval elapsed before ctx was done.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

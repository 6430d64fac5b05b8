package notification

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/go-test-notify/pkg/channel"
	"github.com/Veraticus/go-test-notify/pkg/interfaces"
	"github.com/Veraticus/go-test-notify/pkg/report"
)

// Mode selects how a report is laid out in the channel.
type Mode string

const (
	// ModeSingle posts the whole report as one message.
	ModeSingle Mode = "single"
	// ModeThreaded posts a heading, one message per test and the failures
	// as replies in that test's thread.
	ModeThreaded Mode = "threaded"
)

// DefaultWorkers returns the default size of the threaded delivery pool.
func DefaultWorkers() int {
	return min(32, runtime.NumCPU()+4)
}

// TestReport is the formatted output for one test.
type TestReport struct {
	Name     report.TestName
	Header   []channel.Block
	Failures []channel.Block
}

// Result summarises one delivery. Err aggregates every suppressed error.
type Result struct {
	Sent   int
	Failed int
	Err    error
}

// DeliveryOptions tunes a Deliverer.
type DeliveryOptions struct {
	Mode      Mode
	ChunkSize int
	Workers   int
}

// Deliverer posts reports to one channel of a chat service.
type Deliverer struct {
	name     string
	client   channel.Client
	channel  string
	opts     DeliveryOptions
	log      zerolog.Logger
	reporter interfaces.StatusReporter
}

// NewDeliverer creates a deliverer for the named listener. Zero options fall
// back to threaded mode, DefaultChunkSize and DefaultWorkers.
func NewDeliverer(name string, client channel.Client, channelID string, opts DeliveryOptions, log zerolog.Logger) *Deliverer {
	if opts.Mode == "" {
		opts.Mode = ModeThreaded
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	return &Deliverer{
		name:    name,
		client:  client,
		channel: channelID,
		opts:    opts,
		log:     log.With().Str("listener", name).Logger(),
	}
}

// SetStatusReporter sets the status reporter for delivery progress
func (d *Deliverer) SetStatusReporter(reporter interfaces.StatusReporter) {
	d.reporter = reporter
}

// Deliver posts title and reports. Errors never escape: they are logged,
// reported as a failure and returned in Result for inspection.
func (d *Deliverer) Deliver(ctx context.Context, title string, reports []TestReport) Result {
	if d.reporter != nil {
		d.reporter.ReportSending(d.name)
	}

	var t tally
	if d.opts.Mode == ModeSingle {
		d.deliverSingle(ctx, title, reports, &t)
	} else {
		d.deliverThreaded(ctx, title, reports, &t)
	}

	res := t.result()
	if res.Err != nil {
		d.log.Warn().Err(res.Err).Int("sent", res.Sent).Int("failed", res.Failed).Msg("report delivery incomplete")
		if d.reporter != nil {
			d.reporter.ReportFailure(d.name)
		}
		return res
	}

	d.log.Debug().Int("sent", res.Sent).Msg("report delivered")
	if d.reporter != nil {
		d.reporter.ReportSuccess(d.name)
	}
	return res
}

func (d *Deliverer) deliverSingle(ctx context.Context, title string, reports []TestReport, t *tally) {
	blocks := []channel.Block{Heading(title)}
	for _, r := range reports {
		blocks = append(blocks, r.Header...)
		blocks = append(blocks, r.Failures...)
		blocks = append(blocks, Divider)
	}
	_, err := d.post(ctx, channel.Message{Title: title, Blocks: blocks})
	t.record(err)
}

func (d *Deliverer) deliverThreaded(ctx context.Context, title string, reports []TestReport, t *tally) {
	_, err := d.post(ctx, channel.Message{Title: title, Blocks: []channel.Block{Heading(title)}})
	t.record(err)

	// Anchors are created in order so the channel lists tests as reported.
	var groups []ThreadGroup
	for _, r := range reports {
		anchor, err := d.post(ctx, channel.Message{Title: string(r.Name), Blocks: r.Header})
		t.record(err)
		if err != nil {
			continue
		}
		groups = append(groups, threadGroups(anchor, r.Failures, d.opts.ChunkSize)...)
	}

	if len(groups) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for _, group := range groups {
		g.Go(func() error {
			_, err := d.post(ctx, channel.Message{Title: title, Blocks: group.Blocks, ThreadID: group.Anchor})
			t.record(err)
			return nil
		})
	}
	_ = g.Wait()
}

// post calls the client, turning a panic into an error.
func (d *Deliverer) post(ctx context.Context, msg channel.Message) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &channel.DeliveryError{Service: d.name, Channel: d.channel, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return d.client.Post(ctx, d.channel, msg)
}

// tally collects post outcomes from concurrent workers.
type tally struct {
	mu     sync.Mutex
	sent   int
	failed int
	errs   *multierror.Error
}

func (t *tally) record(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.failed++
		t.errs = multierror.Append(t.errs, err)
		return
	}
	t.sent++
}

func (t *tally) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Result{Sent: t.sent, Failed: t.failed, Err: t.errs.ErrorOrNil()}
}

// Package pipeline wires the capture source, frame analyzer, recording state
// machine and recorder port into the running engine.
//
// Stages: capture -> analyze -> state machine -> command dispatch. Each stage
// runs on its own goroutine. Frames flow through a capacity-one mailbox with
// latest-wins dropping, so analysis latency never queues frames unbounded;
// edge detection stays correct because debouncing compares adjacent processed
// frames, not wall-clock-adjacent ones. All state machine inputs, including
// operator Cancel and command failure reports, funnel through the single
// analysis goroutine, which keeps the one-active-state invariant.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/mizutama/gamewatch/internal/log"
	"github.com/mizutama/gamewatch/pkg/detector"
	"github.com/mizutama/gamewatch/pkg/frame"
	"github.com/mizutama/gamewatch/pkg/recorder"
	"github.com/mizutama/gamewatch/pkg/recording"
)

// FrameSource supplies decoded frames. Next blocks until a frame is
// available, the source ends (io.EOF), or the context is done.
type FrameSource interface {
	Next(ctx context.Context) (*frame.Frame, error)
}

// EventSink receives domain events for external consumers (metadata
// accumulation, UI notification, post-processing triggers).
type EventSink interface {
	Publish(ev recording.DomainEvent)
}

// Binding maps one detector's edges to state machine events. Either edge may
// be unbound.
type Binding struct {
	Rising     recording.EventType
	HasRising  bool
	Falling    recording.EventType
	HasFalling bool
}

// EventMap binds detector names to the events their edges produce.
type EventMap map[string]Binding

// Stats are pipeline counters, safe to read concurrently.
type Stats struct {
	FramesAnalyzed uint64
	FramesDropped  uint64
	EventsApplied  uint64
}

type commandFailure struct {
	cmd recording.Command
	err error
}

// Pipeline runs the engine. Construct with New, then Run.
type Pipeline struct {
	source   FrameSource
	analyzer *detector.Analyzer
	machine  *recording.Machine
	rec      recorder.Recorder
	sink     EventSink
	events   EventMap

	frames   chan *frame.Frame
	cancelCh chan struct{}
	failures chan commandFailure
	dispatch chan dispatchItem

	framesAnalyzed atomic.Uint64
	framesDropped  atomic.Uint64
	eventsApplied  atomic.Uint64
}

type dispatchItem struct {
	cmd     recording.Command
	session *recording.Session
}

// New assembles a pipeline. The sink may be nil when no external consumer is
// attached.
func New(source FrameSource, analyzer *detector.Analyzer, machine *recording.Machine,
	rec recorder.Recorder, sink EventSink, events EventMap) *Pipeline {
	return &Pipeline{
		source:   source,
		analyzer: analyzer,
		machine:  machine,
		rec:      rec,
		sink:     sink,
		events:   events,
		frames:   make(chan *frame.Frame, 1),
		cancelCh: make(chan struct{}, 1),
		failures: make(chan commandFailure, 16),
		dispatch: make(chan dispatchItem, 16),
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		FramesAnalyzed: p.framesAnalyzed.Load(),
		FramesDropped:  p.framesDropped.Load(),
		EventsApplied:  p.eventsApplied.Load(),
	}
}

// Cancel requests an operator cancel. Effective from any non-terminal state,
// immediately and unconditionally; duplicate requests collapse.
func (p *Pipeline) Cancel() {
	select {
	case p.cancelCh <- struct{}{}:
	default:
	}
}

// Run starts the pipeline and blocks until the context is cancelled or the
// frame source ends. On source end the remaining frame and queued commands
// are drained before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sourceDone := make(chan struct{})
	var sourceErr error

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		sourceErr = p.captureLoop(ctx)
		close(sourceDone)
	}()
	go func() {
		defer wg.Done()
		defer close(p.dispatch)
		p.analysisLoop(ctx, sourceDone)
	}()
	go func() {
		defer wg.Done()
		p.dispatchLoop(ctx)
	}()

	wg.Wait()
	if errors.Is(sourceErr, io.EOF) || errors.Is(sourceErr, context.Canceled) {
		return nil
	}
	return sourceErr
}

// captureLoop pulls frames from the source and offers them to the analysis
// mailbox, dropping the stale frame when analysis is behind.
func (p *Pipeline) captureLoop(ctx context.Context) error {
	for {
		f, err := p.source.Next(ctx)
		if err != nil {
			return err
		}
		p.offer(f)
	}
}

// offer places a frame in the capacity-one mailbox, replacing any frame the
// analyzer has not picked up yet. Most recent wins.
func (p *Pipeline) offer(f *frame.Frame) {
	for {
		select {
		case p.frames <- f:
			return
		default:
		}
		select {
		case <-p.frames:
			p.framesDropped.Add(1)
		default:
		}
	}
}

// analysisLoop is the single consumer of the state machine. It analyzes
// frames, maps detector edges to domain events, and applies them in order,
// interleaved with operator cancels and command failure reports. When the
// source ends it drains the last pending frame and returns.
func (p *Pipeline) analysisLoop(ctx context.Context, sourceDone <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return

		case f := <-p.frames:
			p.analyzeFrame(f)

		case <-p.cancelCh:
			p.apply(recording.Event{Type: recording.EventCancel})

		case fail := <-p.failures:
			dev := p.machine.CommandFailed(fail.cmd, fail.err)
			p.publish(dev)

		case <-sourceDone:
			select {
			case f := <-p.frames:
				p.analyzeFrame(f)
			default:
			}
			return
		}
	}
}

func (p *Pipeline) analyzeFrame(f *frame.Frame) {
	p.framesAnalyzed.Add(1)
	for _, ev := range p.analyzer.Analyze(f) {
		if ev.Transitioned {
			p.applyEdge(ev)
		}
	}
}

// applyEdge maps one transitioned detector event to a state machine event,
// if the detector is bound.
func (p *Pipeline) applyEdge(ev detector.Event) {
	b, ok := p.events[ev.Detector]
	if !ok {
		return
	}
	var typ recording.EventType
	switch {
	case ev.Value && b.HasRising:
		typ = b.Rising
	case !ev.Value && b.HasFalling:
		typ = b.Falling
	default:
		return
	}
	p.apply(recording.Event{
		Type:      typ,
		Detector:  ev.Detector,
		Timestamp: ev.Timestamp,
	})
}

// apply feeds one event to the machine, publishes its domain events and
// queues its commands for dispatch.
func (p *Pipeline) apply(ev recording.Event) {
	outcome := p.machine.Apply(ev)
	p.eventsApplied.Add(1)

	for _, cmd := range outcome.Commands {
		select {
		case p.dispatch <- dispatchItem{cmd: cmd, session: outcome.Session}:
		default:
			// Dispatch queue full means the recorder port has stalled
			// badly; treat like a failed command rather than blocking
			// the analysis cycle.
			dev := p.machine.CommandFailed(cmd, errors.New("pipeline: dispatch queue full"))
			p.publish(dev)
		}
	}
	for _, dev := range outcome.Domain {
		p.publish(dev)
	}

	// The finalized session has been handed off via the domain event;
	// the machine is free for the next one.
	if outcome.State == recording.StatePostGameProcessing {
		p.machine.Reset()
	}
}

func (p *Pipeline) publish(ev recording.DomainEvent) {
	if p.sink != nil {
		p.sink.Publish(ev)
	}
}

// dispatchLoop executes recorder commands in order until the analysis loop
// closes the queue. Failures are reported back to the analysis loop; the
// machine halts until an operator cancels. No automatic retry: retry policy
// belongs to the recorder port.
func (p *Pipeline) dispatchLoop(ctx context.Context) {
	for item := range p.dispatch {
		if err := recorder.Dispatch(ctx, p.rec, item.cmd, item.session); err != nil {
			log.Error("recorder command failed", "command", item.cmd.String(), "error", err)
			select {
			case p.failures <- commandFailure{cmd: item.cmd, err: err}:
			default:
				// Analysis loop already gone; the halt is moot.
			}
		}
	}
}

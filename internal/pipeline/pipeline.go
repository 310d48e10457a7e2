package pipeline

import (
	"sync"
	"time"

	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/dispatch"
	"github.com/arnowe/homewire/internal/message"
)

// Logger defines the logging interface used by the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder counts pipeline events. *metrics.Metrics satisfies it; the noop
// is used when metrics are disabled.
type Recorder interface {
	Received(protocol, msgType string)
	Dropped(stage, reason string)
	Normalized(protocol, model string)
	Dispatched(dispatcher, outcome string)
	HandlerFailure(dispatcher string)
}

type noopRecorder struct{}

func (noopRecorder) Received(string, string)   {}
func (noopRecorder) Dropped(string, string)    {}
func (noopRecorder) Normalized(string, string) {}
func (noopRecorder) Dispatched(string, string) {}
func (noopRecorder) HandlerFailure(string)     {}

// Config holds the pipeline's tunables.
type Config struct {
	// QueueSize is the capacity of each inter-stage queue.
	QueueSize int
	// Z2MBase is the zigbee2mqtt bridge's base topic.
	Z2MBase string
	// QoS applies to every pipeline subscription.
	QoS byte
}

// Pipeline chains the ingestor and the three refinement stages:
//
//	broker → ingest → discover → resolve → normalize → Refined()
//
// Each stage is a single-worker dispatcher connected to the next by a
// bounded queue, so messages leave Refined() in exactly the order the
// broker delivered them. Consumers attach to Refined() through NewConsumer.
type Pipeline struct {
	cfg      Config
	registry *device.Registry
	codecs   *codec.Registry

	ingestor *Ingestor
	stages   []*dispatch.Dispatcher
	out      *message.Queue

	requester StateRequester

	diagMu    sync.Mutex
	diagnosed map[string]time.Time

	logger  Logger
	metrics Recorder
}

// New assembles an unstarted pipeline.
func New(cfg Config, registry *device.Registry, codecs *codec.Registry) *Pipeline {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Z2MBase == "" {
		cfg.Z2MBase = "zigbee2mqtt"
	}

	p := &Pipeline{
		cfg:       cfg,
		registry:  registry,
		codecs:    codecs,
		out:       message.NewQueue(cfg.QueueSize),
		diagnosed: make(map[string]time.Time),
		logger:    noopLogger{},
		metrics:   noopRecorder{},
	}

	q1 := message.NewQueue(cfg.QueueSize)
	q2 := message.NewQueue(cfg.QueueSize)
	q3 := message.NewQueue(cfg.QueueSize)

	p.ingestor = NewIngestor(cfg.Z2MBase, cfg.QoS, q1, p.logger, p.metrics)
	p.stages = []*dispatch.Dispatcher{
		dispatch.NewDispatcher(stageDiscover, q1, q2, p.discoverRoutes()),
		dispatch.NewDispatcher(stageResolve, q2, q3, p.resolveRoutes()),
		dispatch.NewDispatcher(stageNormalize, q3, p.out, p.normalizeRoutes()),
	}
	return p
}

// SetLogger sets the logger. Call before Start.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
	p.ingestor.logger = logger
	for _, s := range p.stages {
		s.SetLogger(logger)
	}
}

// SetRecorder sets the metrics recorder. Call before Start.
func (p *Pipeline) SetRecorder(rec Recorder) {
	p.metrics = rec
	p.ingestor.metrics = rec
	for _, s := range p.stages {
		s.SetRecorder(rec)
	}
}

// SetStateRequester enables state priming of newly discovered devices.
// Call before Start.
func (p *Pipeline) SetStateRequester(sr StateRequester) {
	p.requester = sr
}

// Start launches the stage workers and registers the broker subscriptions.
func (p *Pipeline) Start(t Transport) error {
	for _, s := range p.stages {
		if err := s.Start(); err != nil {
			return err
		}
	}
	if err := p.ingestor.Subscribe(t); err != nil {
		return err
	}
	p.logger.Info("pipeline started",
		"stages", len(p.stages), "queue_size", p.cfg.QueueSize, "z2m_base", p.cfg.Z2MBase)
	return nil
}

// Stop drains the stages head to tail, then closes the refined queue so
// consumers finish what was already normalized and observe the close.
func (p *Pipeline) Stop() {
	for _, s := range p.stages {
		s.Stop()
	}
	p.out.Close()
	p.logger.Info("pipeline stopped")
}

// Refined returns the queue of fully normalized messages.
func (p *Pipeline) Refined() *message.Queue {
	return p.out
}

// Ingest offers a raw delivery directly to the pipeline head, bypassing the
// transport. The accessor uses it to loop locally generated traffic; tests
// use it to avoid a broker.
func (p *Pipeline) Ingest(topic string, payload []byte) error {
	return p.ingestor.Handle(topic, payload)
}

// NewConsumer builds a dispatcher that consumes the refined queue with the
// given routes. Start it like any dispatcher; stop it after the pipeline so
// it drains the refined backlog.
func (p *Pipeline) NewConsumer(name string, routes []dispatch.Route) *dispatch.Dispatcher {
	d := dispatch.NewDispatcher(name, p.out, nil, routes)
	d.SetLogger(p.logger)
	if rec, ok := p.metrics.(dispatch.Recorder); ok {
		d.SetRecorder(rec)
	}
	return d
}

package engine

import (
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/JeanCaOLO/crossdoking/allocation"
	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/distribution"
	"github.com/JeanCaOLO/crossdoking/ingest"
	"github.com/JeanCaOLO/crossdoking/messaging"
	"github.com/JeanCaOLO/crossdoking/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Sessions   allocation.SessionStore
	MsgClient  *messaging.Client
	Logger     *zap.SugaredLogger
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	msgClient  *messaging.Client
	dist       *distribution.Service
	alloc      *allocation.Engine
	importer   *ingest.Importer
	drainer    *messaging.OutboxDrainer
	Events     *EventBus
	logFn      LogFunc

	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg := c.AppConfig
	if cfg == nil {
		cfg = config.Defaults()
	}

	e := &Engine{
		cfg:        cfg,
		configPath: c.ConfigPath,
		db:         c.DB,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(logFn),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
	e.dist = distribution.NewService(c.DB, cfg.Containers,
		distribution.WithEmitter(&distributionEmitter{bus: e.Events}),
		distribution.WithAnnouncer(messaging.NewAnnouncer(cfg.StationID, cfg.Messaging.ContainersTopic)),
		distribution.WithLogger(logger),
	)
	e.alloc = allocation.NewEngine(c.DB, c.Sessions)
	e.importer = ingest.NewImporter(c.DB, logger)
	return e
}

// Start wires event logging and, when a messaging client is configured, the
// outbox drainer and the dispatch consumer.
func (e *Engine) Start() {
	e.wireEventHandlers()

	if e.msgClient != nil {
		mc := e.cfg.Messaging
		e.drainer = messaging.NewOutboxDrainer(e.db, e.msgClient, mc.OutboxDrainInterval, mc.OutboxMaxRetries, messaging.LogFunc(e.logFn))
		e.drainer.Start()

		h := messaging.NewDispatchHandler(e.dist, e.cfg.StationID, mc.ContainersTopic, messaging.LogFunc(e.logFn))
		if err := h.Start(e.msgClient, mc.DispatchTopic); err != nil {
			e.logFn("engine: subscribe %s: %v", mc.DispatchTopic, err)
		}

		e.checkConnectionStatus()
		go e.connectionHealthLoop()
	}
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	if e.drainer != nil {
		e.drainer.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                       { return e.db }
func (e *Engine) AppConfig() *config.Config           { return e.cfg }
func (e *Engine) ConfigPath() string                  { return e.configPath }
func (e *Engine) Distribution() *distribution.Service { return e.dist }
func (e *Engine) Allocation() *allocation.Engine      { return e.alloc }
func (e *Engine) MsgClient() *messaging.Client        { return e.msgClient }

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else if e.msgConnected {
		e.msgConnected = false
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

package toolserver

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"voicetrader/src/connectors"
	"voicetrader/src/dispatcher"
	"voicetrader/src/logging"
	"voicetrader/src/repository"
	"voicetrader/src/server"
	"voicetrader/src/session"
)

// Runtime holds the trading client and dispatcher shared by the serve and call commands.
type Runtime struct {
	Log        *logger.Entry
	Client     *connectors.DerivClient // nil when no API token is configured
	Dispatcher *dispatcher.Dispatcher

	unsubscribe func()
}

// NewRuntime builds the gateway client and the dispatcher. db may be nil, in which
// case orders and failures are only logged.
func NewRuntime(ctx context.Context, cfg Config, db *gorm.DB, log *logger.Entry) *Runtime {
	rt := &Runtime{Log: log}
	ccfg := connectors.GetConfig()

	var trader dispatcher.Trader
	if client, ok := connectors.NewDerivClient(ccfg); ok {
		if db != nil {
			client.
				WithJournal(repository.NewTradeLogRepository(db)).
				WithExceptionRecorder(repository.NewExceptionRepository(db))
		}
		if cfg.ConnectOnStart {
			connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			if err := client.Connect(connectCtx); err != nil {
				// operations reconnect on demand
				log.WithError(err).Warn("initial gateway connection failed")
			}
			cancel()
		}
		rt.unsubscribe = client.Subscribe(pushLogger(log))
		rt.Client = client
		trader = client
	}

	var searcher connectors.Searcher
	if sc, ok := connectors.NewSearchClient(ccfg); ok {
		searcher = sc
	}

	rt.Dispatcher = dispatcher.New(trader, searcher, logging.Component("dispatcher"))
	return rt
}

func (rt *Runtime) Close() {
	if rt.unsubscribe != nil {
		rt.unsubscribe()
	}
	if rt.Client != nil {
		rt.Client.Close()
	}
}

// pushLogger traces frames the gateway sends without a req_id, e.g. stream updates.
func pushLogger(log *logger.Entry) session.Handler {
	return func(resp *session.Response) {
		if resp.ReqID != 0 {
			return
		}
		entry := log.WithField("msg_type", resp.MsgType)
		if resp.Error != nil {
			entry = entry.WithField("code", resp.Error.Code)
		}
		entry.Debug("gateway push")
	}
}

// Start serves the tool endpoints until SIGINT or SIGTERM.
func (rt *Runtime) Start() error {
	var status server.StatusReporter
	if rt.Client != nil {
		status = rt.Client
	}
	rt.Log.Info("Starting tool server")
	return server.StartServer(server.GetConfig(), rt.Dispatcher, status)
}

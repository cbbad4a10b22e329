package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/developerxnoxs/xnoxs-feed/internal/auth"
	"github.com/developerxnoxs/xnoxs-feed/internal/config"
	"github.com/developerxnoxs/xnoxs-feed/internal/connection"
	"github.com/developerxnoxs/xnoxs-feed/internal/feed"
	"github.com/developerxnoxs/xnoxs-feed/internal/fetch"
	"github.com/developerxnoxs/xnoxs-feed/internal/logging"
	"github.com/developerxnoxs/xnoxs-feed/internal/model"
	"github.com/developerxnoxs/xnoxs-feed/internal/search"
	"github.com/developerxnoxs/xnoxs-feed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/livefeed.yaml", "path to config file")
	symbols := flag.String("symbols", "", "comma-separated EXCHANGE:SYMBOL@TIMEFRAME streams, overrides the config file")
	searchQuery := flag.String("search", "", "search for symbols matching the query and exit")
	searchExchange := flag.String("search-exchange", "", "exchange filter for -search")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Credentials usually live in .env; missing file is fine.
	_ = godotenv.Load()

	cfg := loadConfig(*configPath)

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting live feed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if *searchQuery != "" {
		runSearch(cfg, logger, *searchQuery, *searchExchange)
		return
	}

	streams := resolveStreams(logger, *symbols, cfg.Streams)
	if len(streams) == 0 {
		logger.Error("no streams configured, use -symbols or the config file")
		os.Exit(1)
	}

	// Authenticate when credentials are configured; otherwise fall back
	// to a stored session or anonymous delayed data.
	authCfg := auth.DefaultConfig()
	authCfg.SignInURL = cfg.Auth.SignInURL
	authCfg.SessionFile = cfg.Auth.SessionFile
	authMgr := auth.NewManager(authCfg, logger)

	token := authMgr.Token()
	if cfg.Auth.Username != "" {
		t, err := authMgr.Authenticate(cfg.Auth.Username, cfg.Auth.Password)
		if err != nil {
			logger.Warn("login failed, continuing with anonymous access", "error", err)
		} else {
			token = t
		}
	}
	if token == auth.AnonymousToken {
		logger.Info("using anonymous access, data may be delayed")
	}

	conn := connection.NewManager(connection.Config{
		Endpoint:          cfg.Connection.Endpoint,
		Origin:            cfg.Connection.Origin,
		DialTimeout:       cfg.Connection.DialTimeout,
		WriteTimeout:      cfg.Connection.WriteTimeout,
		HeartbeatInterval: cfg.Connection.HeartbeatInterval,
		PingTimeout:       cfg.Connection.PingTimeout,
		ReconnectAttempts: cfg.Connection.ReconnectAttempts,
		ReconnectDelay:    cfg.Connection.ReconnectDelay,
		ReconnectDelayMax: cfg.Connection.ReconnectDelayMax,
	}, connection.NewDialer(), logger)
	conn.OnStateChange(func(st connection.State) {
		logger.Debug("connection state changed", "state", st)
	})
	if !conn.Connect() {
		logger.Error("failed to establish connection", "endpoint", cfg.Connection.Endpoint)
		os.Exit(1)
	}
	defer conn.Close()

	client := fetch.NewClient(fetch.Config{
		Token:          token,
		FetchTimeout:   cfg.Fetch.FetchTimeout,
		ReceiveTimeout: cfg.Fetch.ReceiveTimeout,
	}, conn, logger)

	source := &streamSource{client: client, opts: make(map[string]fetch.Options)}
	for _, st := range streams {
		source.opts[st.Exchange+":"+st.Symbol] = fetch.Options{
			Contract:        st.Contract,
			ExtendedSession: st.ExtendedSession,
		}
	}

	lf := feed.New(feed.Config{
		RetryLimit: cfg.Feed.RetryLimit,
		RetryDelay: cfg.Feed.RetryDelay,
		SeedBars:   cfg.Feed.SeedBars,
	}, source, logger)

	for _, st := range streams {
		tf, err := model.ParseTimeframe(st.Timeframe)
		if err != nil {
			logger.Error("skipping stream", "symbol", st.Symbol, "error", err)
			continue
		}
		sub, err := lf.Subscribe(st.Symbol, st.Exchange, tf)
		if err != nil {
			logger.Error("subscribe failed",
				"symbol", st.Symbol,
				"exchange", st.Exchange,
				"error", err,
			)
			continue
		}
		if _, err := lf.AttachConsumer(sub, printBar); err != nil {
			logger.Error("attach consumer failed", "stream", sub.String(), "error", err)
		}
	}
	if lf.Len() == 0 {
		logger.Error("no streams subscribed")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		lf.Shutdown()
	}()

	logger.Info("live feed running", "streams", lf.Len())
	lf.Wait()
	logger.Info("live feed stopped")
}

// streamSource routes each stream's fetch through its configured
// futures-contract and session options.
type streamSource struct {
	client *fetch.Client
	opts   map[string]fetch.Options
}

func (s *streamSource) GetBars(symbol, exchange string, tf model.Timeframe, n int) ([]model.Bar, error) {
	return s.client.GetBarsWithOptions(symbol, exchange, tf, n, s.opts[exchange+":"+symbol])
}

func printBar(sub *feed.Subscription, bar model.Bar) {
	fmt.Printf("%s  %-24s O=%.4f H=%.4f L=%.4f C=%.4f V=%.2f\n",
		bar.Time.Format(time.RFC3339), sub.String(),
		bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
	)
}

func loadConfig(path string) *config.FeedConfig {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default()
	}
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	return cfg
}

// resolveStreams prefers the -symbols flag over the config file.
// Flag form: BINANCE:BTCUSDT@1m,NASDAQ:AAPL@1D
func resolveStreams(logger *slog.Logger, flagValue string, fromConfig []config.StreamConfig) []config.StreamConfig {
	if flagValue == "" {
		return fromConfig
	}

	var streams []config.StreamConfig
	for _, entry := range strings.Split(flagValue, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		spec, tf, ok := strings.Cut(entry, "@")
		if !ok {
			tf = "1D"
			spec = entry
		}
		exchange, symbol, ok := strings.Cut(spec, ":")
		if !ok {
			logger.Error("bad stream spec, want EXCHANGE:SYMBOL@TIMEFRAME", "spec", entry)
			continue
		}
		streams = append(streams, config.StreamConfig{
			Symbol:    symbol,
			Exchange:  exchange,
			Timeframe: tf,
		})
	}
	return streams
}

func runSearch(cfg *config.FeedConfig, logger *slog.Logger, query, exchange string) {
	client := search.NewClient(search.Config{
		BaseURL: cfg.Search.BaseURL,
		Timeout: cfg.Search.Timeout,
	}, logger)

	results := client.Search(query, exchange)
	if len(results) == 0 {
		fmt.Println("no symbols found")
		return
	}
	for _, r := range results {
		fmt.Printf("%-12s %-32s %-10s %s\n", r.Symbol, r.Description, r.Type, r.Exchange)
	}
}

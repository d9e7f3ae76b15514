package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	gqlcache "github.com/gqlcache/gqlcache"
	"github.com/gqlcache/gqlcache/cache"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFlag         string
	portFlag           int
	originFlag         string
	addrFlag           string
	hostFlag           string
	storeFlag          string
	dbFilenameFlag     string
	redisURLFlag       string
	ttlFlag            int
	bypassHeaderFlag   string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFlag, "config", "", "Config file to use")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides addr and host)")
	flag.StringVar(&addrFlag, "addr", "", "Origin IP address to proxy to")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&storeFlag, "store", "sqlite", "Store to use: memory, sqlite or redis")
	flag.StringVar(&dbFilenameFlag, "db", "cache.db", "Cache DB file name for the sqlite store (use 'memory' for in-memory db)")
	flag.StringVar(&redisURLFlag, "redis", "", "Redis URL for the redis store")
	flag.IntVar(&ttlFlag, "ttl", 0, "Default expiry in seconds for writes without a declared timeout (0 for no expiry)")
	flag.StringVar(&bypassHeaderFlag, "bypass-header", "", "Request header that disables hash caching")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config := Config{}
	if configFlag != "" {
		fileConfig, err := getConfig(configFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read config file")
		}
		config = fileConfig
	}
	applyFlags(&config)

	cacheConfig := gqlcache.Config{
		Store:        createStore(config.Store),
		Logger:       &log.Logger,
		DefaultTTL:   time.Duration(config.TTL) * time.Second,
		BypassHeader: config.BypassHeader,
	}

	// get the downstream server address
	if config.Origin != "" {
		originUrl, err := url.Parse(config.Origin)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not parse url")
		}
		cacheConfig.OriginURL = *originUrl
	} else if config.Addr != "" {
		originUrl, err := url.Parse("https://" + config.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not parse url")
		}
		cacheConfig.OriginURL = *originUrl
		cacheConfig.OriginHost = config.Host
	} else {
		log.Fatal().Msg("Please specify origin")
	}

	gc := gqlcache.CreateCache(cacheConfig)

	// attach a request logger with a request id to every request
	handler := hlog.NewHandler(log.Logger)(
		hlog.RequestIDHandler("req_id", "Request-Id")(gc))

	log.Info().Msgf("Proxying port %v to %s (with hostname '%s')", config.Port, cacheConfig.OriginURL.String(), cacheConfig.OriginHost)
	err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), handler)

	if err != nil {
		panic(err)
	}
}

// applyFlags overlays command line flags on top of the file config.
// Explicitly set flags always win, defaults only fill in missing values.
func applyFlags(config *Config) {
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	if explicit["origin"] || config.Origin == "" {
		config.Origin = originFlag
	}
	if explicit["addr"] || config.Addr == "" {
		config.Addr = addrFlag
	}
	if explicit["host"] || config.Host == "" {
		config.Host = hostFlag
	}
	if explicit["port"] || config.Port == 0 {
		config.Port = portFlag
	}
	if explicit["store"] || config.Store.Provider == "" {
		config.Store.Provider = storeFlag
	}
	if explicit["db"] || config.Store.File == "" {
		config.Store.File = dbFilenameFlag
	}
	if explicit["redis"] || config.Store.Redis == "" {
		config.Store.Redis = redisURLFlag
	}
	if explicit["ttl"] || config.TTL == 0 {
		config.TTL = ttlFlag
	}
	if explicit["bypass-header"] || config.BypassHeader == "" {
		config.BypassHeader = bypassHeaderFlag
	}
}

func createStore(config StoreConfig) cache.Store {
	switch config.Provider {
	case "", "sqlite":
		filename := config.File
		if filename == "memory" {
			filename = ""
		}
		return cache.NewSQLiteStore(filename)
	case "memory":
		return cache.NewMemStore()
	case "redis":
		opts, err := redis.ParseURL(config.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not parse redis url")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Could not connect to redis")
		}
		return cache.NewRedisStore(client)
	default:
		log.Fatal().Msgf("Unknown store provider '%s'", config.Provider)
		return nil
	}
}

package config

import (
	"flag"
	"os"
	"time"
)

// ParseFlags parses all configuration flags from os.Args.
//
// Flags:
//
//	-remote-url remote sync API base URL
//	-request-timeout outbound request timeout (e.g., "15s")
//	-d local database DSN
//	-sync-interval timer trigger period (e.g., "5m")
//	-batch-size max operations drained per peek
//	-retry-ceiling transient failures before an operation turns terminal
//	-probe-interval reachability probe period (e.g., "30s")
//	-log-file rotating log file path
//	-c/-config json file path with configs
//
// A dedicated FlagSet is used instead of the global flag registry so the
// host application's own flags are left untouched. Unknown flags are
// reported as an error by the caller, not handled here.
func ParseFlags() (*StructuredConfig, error) {
	return parseFlags(os.Args[1:])
}

func parseFlags(args []string) (*StructuredConfig, error) {
	var remoteURL string
	var requestTimeout time.Duration
	var databaseDSN string
	var syncInterval time.Duration
	var batchSize int
	var retryCeiling int
	var probeInterval time.Duration
	var logFilePath string
	var jsonConfigPath string

	fs := flag.NewFlagSet("buzo-sync", flag.ContinueOnError)
	fs.StringVar(&remoteURL, "remote-url", "", "Remote sync API base URL")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Sync timer period (e.g., 5m)")
	fs.IntVar(&batchSize, "batch-size", 0, "Max operations per drained batch")
	fs.IntVar(&retryCeiling, "retry-ceiling", 0, "Transient failures before terminal failure")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Reachability probe period (e.g., 30s)")
	fs.StringVar(&logFilePath, "log-file", "", "Rotating log file path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		Remote: Remote{
			BaseURL:        remoteURL,
			RequestTimeout: requestTimeout,
		},
		Engine: Engine{
			SyncInterval:  syncInterval,
			BatchSize:     batchSize,
			RetryCeiling:  retryCeiling,
			ProbeInterval: probeInterval,
		},
		Storage: Storage{
			DSN: databaseDSN,
		},
		Logging: Logging{
			FilePath: logFilePath,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

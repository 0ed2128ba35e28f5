package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database path of the main sync database
//	-base-url snapshot service endpoint
//	-request-timeout per-attempt request timeout (e.g. "30s")
//	-retry-count number of re-issues after a failed attempt
//	-retry-wait base backoff between attempts (e.g. "500ms")
//	-max-concurrent concurrency ceiling for network operations
//	-dispatch-delay pause between request dispatches
//	-c/-config json file path with configs
func ParseFlags() *Config {
	var databaseDSN string
	var baseURL string
	var requestTimeout time.Duration
	var retryCount int
	var retryWait time.Duration
	var maxConcurrent int
	var dispatchDelay time.Duration
	var jsonConfigPath string

	flag.StringVar(&databaseDSN, "d", "", "Main sync database path")
	flag.StringVar(&baseURL, "base-url", "", "Snapshot service endpoint")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.IntVar(&retryCount, "retry-count", 0, "Retries after a failed attempt")
	flag.DurationVar(&retryWait, "retry-wait", 0, "Backoff between attempts")
	flag.IntVar(&maxConcurrent, "max-concurrent", 0, "Concurrency ceiling for network operations")
	flag.DurationVar(&dispatchDelay, "dispatch-delay", 0, "Pause between request dispatches")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &Config{
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Transport: Transport{
			BaseURL:        baseURL,
			RequestTimeout: Duration(requestTimeout),
			RetryCount:     retryCount,
			RetryWaitTime:  Duration(retryWait),
		},
		Sync: Sync{
			MaxConcurrentRequests: maxConcurrent,
			DispatchDelay:         Duration(dispatchDelay),
		},
		JSONFilePath: jsonConfigPath,
	}
}

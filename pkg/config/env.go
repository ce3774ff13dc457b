package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/models"
)

const (
	// DefaultPort defines the default port for the HTTP server
	DefaultPort = "8080"

	// DefaultRPCURL defines the default RPC endpoint
	DefaultRPCURL = "https://mainnet.base.org"

	// DefaultChainID defines the default chain to submit transactions to
	DefaultChainID = 8453

	// DefaultZKP2PBaseURL defines the default quoting/verification API base URL
	DefaultZKP2PBaseURL = "https://api.zkp2p.xyz/v1"

	// DefaultDBName defines the default database name for the record store
	DefaultDBName = "samba"

	// DefaultPayeeAddress is the liquidity provider preferred during quote
	// selection regardless of rate. A routing preference, not a price rule.
	DefaultPayeeAddress = "0x3729a6a9ceD02C9d0A86ec9834b28825B212aBF3"

	// DefaultMinFiatAmount is the minimum user-facing amount in source currency
	DefaultMinFiatAmount = "0.10"

	// DefaultMaxFiatAmount is the maximum user-facing amount in source currency
	DefaultMaxFiatAmount = "10000.00"

	// DefaultProofFetchIntervalSeconds defines how often the proof extension is polled
	DefaultProofFetchIntervalSeconds = 2

	// DefaultProofTimeoutMinutes defines the overall proof acquisition timeout
	DefaultProofTimeoutMinutes = 10

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker in minutes
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker in minutes
	DefaultCircuitBreakerReset = 15
)

// GetEnvPort returns the HTTP port from the environment
func GetEnvPort() (string, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return DefaultPort, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value: %s", port)
	}
	return port, nil
}

// GetEnvChainID returns the chain ID from the environment
func GetEnvChainID() (int64, error) {
	val := os.Getenv("CHAIN_ID")
	if val == "" {
		return DefaultChainID, nil
	}
	chainID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CHAIN_ID value: %s", val)
	}
	return chainID, nil
}

// GetEnvAmountBounds returns the fiat amount bounds scaled to token decimals
func GetEnvAmountBounds() (*big.Int, *big.Int, error) {
	minStr := os.Getenv("MIN_FIAT_AMOUNT")
	if minStr == "" {
		minStr = DefaultMinFiatAmount
	}
	maxStr := os.Getenv("MAX_FIAT_AMOUNT")
	if maxStr == "" {
		maxStr = DefaultMaxFiatAmount
	}

	min, err := models.ParseUnits(minStr, models.TokenDecimals)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid MIN_FIAT_AMOUNT value: %s", minStr)
	}
	max, err := models.ParseUnits(maxStr, models.TokenDecimals)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid MAX_FIAT_AMOUNT value: %s", maxStr)
	}
	return min, max, nil
}

// GetEnvProofFetchInterval returns the proof polling interval from the environment
func GetEnvProofFetchInterval() (time.Duration, error) {
	val := os.Getenv("PROOF_FETCH_INTERVAL_SECONDS")
	if val == "" {
		return DefaultProofFetchIntervalSeconds * time.Second, nil
	}
	seconds, err := strconv.Atoi(val)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid PROOF_FETCH_INTERVAL_SECONDS value: %s", val)
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvProofTimeout returns the overall proof acquisition timeout from the environment
func GetEnvProofTimeout() (time.Duration, error) {
	val := os.Getenv("PROOF_TIMEOUT_MINUTES")
	if val == "" {
		return DefaultProofTimeoutMinutes * time.Minute, nil
	}
	minutes, err := strconv.Atoi(val)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid PROOF_TIMEOUT_MINUTES value: %s", val)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled
func GetEnvCircuitBreakerEnabled() (bool, error) {
	val := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if val == "" {
		return DefaultCircuitBreakerEnabled, nil
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s", val)
	}
	return enabled, nil
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker failure threshold
func GetEnvCircuitBreakerThreshold() (int, error) {
	val := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if val == "" {
		return DefaultCircuitBreakerThreshold, nil
	}
	threshold, err := strconv.Atoi(val)
	if err != nil || threshold <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s", val)
	}
	return threshold, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker failure window
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	val := os.Getenv("CIRCUIT_BREAKER_WINDOW_MINUTES")
	if val == "" {
		return DefaultCircuitBreakerWindow * time.Minute, nil
	}
	minutes, err := strconv.Atoi(val)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW_MINUTES value: %s", val)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	val := os.Getenv("CIRCUIT_BREAKER_RESET_MINUTES")
	if val == "" {
		return DefaultCircuitBreakerReset * time.Minute, nil
	}
	minutes, err := strconv.Atoi(val)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET_MINUTES value: %s", val)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvLogLevel returns the log level from the environment
func GetEnvLogLevel() (logger.Level, error) {
	val := os.Getenv("LOG_LEVEL")
	switch val {
	case "", "info":
		return logger.InfoLevel, nil
	case "debug":
		return logger.DebugLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s", val)
}

// GetEnvLogColoring returns whether log coloring is enabled
func GetEnvLogColoring() (bool, error) {
	val := os.Getenv("LOG_COLORING")
	if val == "" {
		return true, nil
	}
	coloring, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s", val)
	}
	return coloring, nil
}

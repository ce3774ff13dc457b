package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/samba-xyz/samba-relay/pkg/logger"
)

// Config holds the configuration for the relay service
type Config struct {
	Port            string
	RPCURL          string
	ChainID         int64
	PrivateKey      string
	EscrowAddress   string
	TokenAddress    string
	GatingSigner    string
	VenmoVerifier   string
	RevolutVerifier string
	DefaultPayee    string
	WrapperBytecode string

	ZKP2PBaseURL string
	ZKP2PAPIKey  string

	TokenInfoURL string

	MongoURI string
	DBName   string

	MinFiatAmount *big.Int
	MaxFiatAmount *big.Int

	ProofFetchInterval time.Duration
	ProofTimeout       time.Duration

	MetricsAPIKey  string
	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	port, err := GetEnvPort()
	if err != nil {
		return nil, err
	}

	chainID, err := GetEnvChainID()
	if err != nil {
		return nil, err
	}

	minAmount, maxAmount, err := GetEnvAmountBounds()
	if err != nil {
		return nil, err
	}

	proofInterval, err := GetEnvProofFetchInterval()
	if err != nil {
		return nil, err
	}

	proofTimeout, err := GetEnvProofTimeout()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            port,
		RPCURL:          getEnvOrDefault("RPC_URL", DefaultRPCURL),
		ChainID:         chainID,
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		EscrowAddress:   os.Getenv("ESCROW_CONTRACT"),
		TokenAddress:    os.Getenv("USDC_CONTRACT"),
		GatingSigner:    os.Getenv("INTENTS_GATING_ADDRESS"),
		VenmoVerifier:   os.Getenv("VENMO_VERIFIER"),
		RevolutVerifier: os.Getenv("REVOLUT_VERIFIER"),
		DefaultPayee:    getEnvOrDefault("DEFAULT_PAYEE_ADDRESS", DefaultPayeeAddress),
		WrapperBytecode: os.Getenv("WRAPPER_BYTECODE"),

		ZKP2PBaseURL: getEnvOrDefault("ZKP2P_API_URL", DefaultZKP2PBaseURL),
		ZKP2PAPIKey:  os.Getenv("ZKP2P_API_KEY"),

		TokenInfoURL: os.Getenv("TOKENINFO_URL"),

		MongoURI: os.Getenv("MONGODB_URI"),
		DBName:   getEnvOrDefault("DB_NAME", DefaultDBName),

		MinFiatAmount: minAmount,
		MaxFiatAmount: maxAmount,

		ProofFetchInterval: proofInterval,
		ProofTimeout:       proofTimeout,

		MetricsAPIKey: os.Getenv("METRICS_API_KEY"),
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if cfg.ZKP2PAPIKey == "" {
		return fmt.Errorf("ZKP2P_API_KEY environment variable is required")
	}
	if cfg.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI environment variable is required")
	}
	if cfg.VenmoVerifier == "" || cfg.RevolutVerifier == "" {
		return fmt.Errorf("VENMO_VERIFIER and REVOLUT_VERIFIER environment variables are required")
	}
	if cfg.GatingSigner == "" {
		return fmt.Errorf("INTENTS_GATING_ADDRESS environment variable is required")
	}
	if cfg.MinFiatAmount.Cmp(cfg.MaxFiatAmount) > 0 {
		return fmt.Errorf("MIN_FIAT_AMOUNT must not exceed MAX_FIAT_AMOUNT")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

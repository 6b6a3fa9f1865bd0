package config

import (
	"os"
	"strconv"

	"phaselock/domain/core"
)

// Config represents the complete application configuration
type Config struct {
	Hardware     HardwareConfig
	Optimization OptimizationConfig
	Graph        GraphConfig
	Server       ServerConfig
	Database     DatabaseConfig
}

// HardwareConfig holds phase shifter electrical characteristics
type HardwareConfig struct {
	VPi     float64
	VBias   float64
	VMax    float64
	DACBits int
}

// OptimizationConfig holds verification and refinement settings
type OptimizationConfig struct {
	Threshold     float64
	MaxIterations int
	Momentum      float64
	LearningRate  float64
	GradientDelta float64
	HistogramBins int
	PerturbSeed   int64
	PerturbSteps  int
	PerturbScale  float64
}

// GraphConfig holds coupling topology generation settings
type GraphConfig struct {
	LongRangeDensity float64
	LongRangeWeight  float64
	Seed             int64
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection settings. URL may be empty, in
// which case persistence is disabled and runs are file-only.
type DatabaseConfig struct {
	URL string
}

// Default returns the built-in configuration used when no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Hardware: HardwareConfig{
			VPi:     5.2,
			VBias:   0.0,
			VMax:    8.0,
			DACBits: 16,
		},
		Optimization: OptimizationConfig{
			Threshold:     80.0,
			MaxIterations: 16,
			Momentum:      0.9,
			LearningRate:  0.1,
			GradientDelta: 0.01,
			HistogramBins: 16,
			PerturbSeed:   1337,
			PerturbSteps:  5,
			PerturbScale:  0.05,
		},
		Graph: GraphConfig{
			LongRangeDensity: 0.3,
			LongRangeWeight:  0.5,
			Seed:             42,
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := Default()

	cfg.Hardware = HardwareConfig{
		VPi:     getEnvFloatOrDefault("PHASELOCK_V_PI", cfg.Hardware.VPi),
		VBias:   getEnvFloatOrDefault("PHASELOCK_V_BIAS", cfg.Hardware.VBias),
		VMax:    getEnvFloatOrDefault("PHASELOCK_V_MAX", cfg.Hardware.VMax),
		DACBits: getEnvIntOrDefault("PHASELOCK_DAC_BITS", cfg.Hardware.DACBits),
	}

	cfg.Optimization = OptimizationConfig{
		Threshold:     getEnvFloatOrDefault("PHASELOCK_THRESHOLD", cfg.Optimization.Threshold),
		MaxIterations: getEnvIntOrDefault("PHASELOCK_MAX_ITERATIONS", cfg.Optimization.MaxIterations),
		Momentum:      getEnvFloatOrDefault("PHASELOCK_MOMENTUM", cfg.Optimization.Momentum),
		LearningRate:  getEnvFloatOrDefault("PHASELOCK_LEARNING_RATE", cfg.Optimization.LearningRate),
		GradientDelta: getEnvFloatOrDefault("PHASELOCK_GRADIENT_DELTA", cfg.Optimization.GradientDelta),
		HistogramBins: getEnvIntOrDefault("PHASELOCK_HISTOGRAM_BINS", cfg.Optimization.HistogramBins),
		PerturbSeed:   getEnvInt64OrDefault("PHASELOCK_PERTURB_SEED", cfg.Optimization.PerturbSeed),
		PerturbSteps:  getEnvIntOrDefault("PHASELOCK_PERTURB_STEPS", cfg.Optimization.PerturbSteps),
		PerturbScale:  getEnvFloatOrDefault("PHASELOCK_PERTURB_SCALE", cfg.Optimization.PerturbScale),
	}

	cfg.Graph = GraphConfig{
		LongRangeDensity: getEnvFloatOrDefault("PHASELOCK_CHORD_DENSITY", cfg.Graph.LongRangeDensity),
		LongRangeWeight:  getEnvFloatOrDefault("PHASELOCK_CHORD_WEIGHT", cfg.Graph.LongRangeWeight),
		Seed:             getEnvInt64OrDefault("PHASELOCK_GRAPH_SEED", cfg.Graph.Seed),
	}

	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Database.URL = getEnvOrDefault("DATABASE_URL", "")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Hardware.VPi <= 0 {
		return core.NewValidationError("PHASELOCK_V_PI", "must be positive")
	}
	if cfg.Hardware.VMax <= 0 {
		return core.NewValidationError("PHASELOCK_V_MAX", "must be positive")
	}
	if cfg.Hardware.DACBits < 1 || cfg.Hardware.DACBits > 32 {
		return core.NewValidationError("PHASELOCK_DAC_BITS", "must be between 1 and 32")
	}
	if cfg.Optimization.MaxIterations < 1 || cfg.Optimization.MaxIterations >= 20 {
		return core.NewValidationError("PHASELOCK_MAX_ITERATIONS", "must be between 1 and 19")
	}
	if cfg.Optimization.Momentum < 0 || cfg.Optimization.Momentum >= 1 {
		return core.NewValidationError("PHASELOCK_MOMENTUM", "must be in [0, 1)")
	}
	if cfg.Optimization.LearningRate <= 0 {
		return core.NewValidationError("PHASELOCK_LEARNING_RATE", "must be positive")
	}
	if cfg.Optimization.GradientDelta <= 0 {
		return core.NewValidationError("PHASELOCK_GRADIENT_DELTA", "must be positive")
	}
	if cfg.Optimization.HistogramBins < 2 {
		return core.NewValidationError("PHASELOCK_HISTOGRAM_BINS", "must be at least 2")
	}
	if cfg.Optimization.PerturbSteps < 1 {
		return core.NewValidationError("PHASELOCK_PERTURB_STEPS", "must be at least 1")
	}
	if cfg.Graph.LongRangeDensity < 0 || cfg.Graph.LongRangeDensity > 1 {
		return core.NewValidationError("PHASELOCK_CHORD_DENSITY", "must be in [0, 1]")
	}
	if cfg.Graph.LongRangeWeight < 0 {
		return core.NewValidationError("PHASELOCK_CHORD_WEIGHT", "must be non-negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

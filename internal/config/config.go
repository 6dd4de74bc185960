// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Driver is "pgx" or "postgres" (lib/pq).
	Driver string
}

type AppConfig struct {
	// Source selects where raw planning data comes from: postgres, file or bucket.
	Source    string
	DataDir   string
	ExportDir string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
	LockTTLSeconds     int
}

type StorageConfig struct {
	// Provider is "minio" or "s3".
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// EngineConfig holds every planning parameter. Defaults reproduce the
// standard DDMRP settings.
type EngineConfig struct {
	LTF                float64
	HistoricalWeight   float64
	RecentWeight       float64
	IncludeSales       bool
	IncludeConsumption bool
	IncludeTransfer    bool

	ABCShareA         float64
	ABCShareB         float64
	XYZXMax           float64
	XYZYMax           float64
	RotationHigh      float64
	RotationMedium    float64
	PeriodicityHigh   float64
	PeriodicityMedium float64

	ExcessMultiplier float64
	LowCoverageDays  float64
	HighCoverageDays float64

	DefaultHorizon int
	FEIWindowDays  int

	DeviationNoise       float64
	DeviationTopN        int
	DeviationCriticalPct float64

	RefreshIntervalSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))
		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "ddmrp")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_DRIVER", "pgx")
	viper.SetDefault("APP_SOURCE", "file")
	viper.SetDefault("APP_DATA_DIR", "./data/input")
	viper.SetDefault("APP_EXPORT_DIR", "./data/output")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SNAPSHOT_TTL_SECONDS", 86400)
	viper.SetDefault("CACHE_LOCK_TTL_SECONDS", 120)
	viper.SetDefault("STORAGE_PROVIDER", "minio")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "exports/")

	viper.SetDefault("ENGINE_LTF", 0.2)
	viper.SetDefault("ENGINE_HISTORICAL_WEIGHT", 0.4)
	viper.SetDefault("ENGINE_RECENT_WEIGHT", 0.6)
	viper.SetDefault("ENGINE_INCLUDE_SALES", true)
	viper.SetDefault("ENGINE_INCLUDE_CONSUMPTION", true)
	viper.SetDefault("ENGINE_INCLUDE_TRANSFER", false)
	viper.SetDefault("ENGINE_ABC_SHARE_A", 0.2)
	viper.SetDefault("ENGINE_ABC_SHARE_B", 0.3)
	viper.SetDefault("ENGINE_XYZ_X_MAX", 0.5)
	viper.SetDefault("ENGINE_XYZ_Y_MAX", 0.8)
	viper.SetDefault("ENGINE_ROTATION_HIGH", 6)
	viper.SetDefault("ENGINE_ROTATION_MEDIUM", 2)
	viper.SetDefault("ENGINE_PERIODICITY_HIGH", 5)
	viper.SetDefault("ENGINE_PERIODICITY_MEDIUM", 3)
	viper.SetDefault("ENGINE_EXCESS_MULTIPLIER", 1.5)
	viper.SetDefault("ENGINE_LOW_COVERAGE_DAYS", 15)
	viper.SetDefault("ENGINE_HIGH_COVERAGE_DAYS", 45)
	viper.SetDefault("ENGINE_DEFAULT_HORIZON", 30)
	viper.SetDefault("ENGINE_FEI_WINDOW_DAYS", 0)
	viper.SetDefault("ENGINE_DEVIATION_NOISE", 10)
	viper.SetDefault("ENGINE_DEVIATION_TOP_N", 50)
	viper.SetDefault("ENGINE_DEVIATION_CRITICAL_PCT", 20)
	viper.SetDefault("ENGINE_REFRESH_INTERVAL_SECONDS", 300)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			LogFormat:      viper.GetString("LOG_FORMAT"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			Driver:   viper.GetString("DB_DRIVER"),
		},
		App: AppConfig{
			Source:    viper.GetString("APP_SOURCE"),
			DataDir:   viper.GetString("APP_DATA_DIR"),
			ExportDir: viper.GetString("APP_EXPORT_DIR"),
		},
		Cache: CacheConfig{
			Enabled:            viper.GetBool("CACHE_ENABLED"),
			RedisURL:           viper.GetString("REDIS_URL"),
			RedisHost:          viper.GetString("REDIS_HOST"),
			RedisPort:          viper.GetString("REDIS_PORT"),
			RedisPassword:      viper.GetString("REDIS_PASSWORD"),
			RedisDB:            viper.GetInt("REDIS_DB"),
			SnapshotTTLSeconds: viper.GetInt("CACHE_SNAPSHOT_TTL_SECONDS"),
			LockTTLSeconds:     viper.GetInt("CACHE_LOCK_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Provider:  viper.GetString("STORAGE_PROVIDER"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Engine: EngineConfig{
			LTF:                    viper.GetFloat64("ENGINE_LTF"),
			HistoricalWeight:       viper.GetFloat64("ENGINE_HISTORICAL_WEIGHT"),
			RecentWeight:           viper.GetFloat64("ENGINE_RECENT_WEIGHT"),
			IncludeSales:           viper.GetBool("ENGINE_INCLUDE_SALES"),
			IncludeConsumption:     viper.GetBool("ENGINE_INCLUDE_CONSUMPTION"),
			IncludeTransfer:        viper.GetBool("ENGINE_INCLUDE_TRANSFER"),
			ABCShareA:              viper.GetFloat64("ENGINE_ABC_SHARE_A"),
			ABCShareB:              viper.GetFloat64("ENGINE_ABC_SHARE_B"),
			XYZXMax:                viper.GetFloat64("ENGINE_XYZ_X_MAX"),
			XYZYMax:                viper.GetFloat64("ENGINE_XYZ_Y_MAX"),
			RotationHigh:           viper.GetFloat64("ENGINE_ROTATION_HIGH"),
			RotationMedium:         viper.GetFloat64("ENGINE_ROTATION_MEDIUM"),
			PeriodicityHigh:        viper.GetFloat64("ENGINE_PERIODICITY_HIGH"),
			PeriodicityMedium:      viper.GetFloat64("ENGINE_PERIODICITY_MEDIUM"),
			ExcessMultiplier:       viper.GetFloat64("ENGINE_EXCESS_MULTIPLIER"),
			LowCoverageDays:        viper.GetFloat64("ENGINE_LOW_COVERAGE_DAYS"),
			HighCoverageDays:       viper.GetFloat64("ENGINE_HIGH_COVERAGE_DAYS"),
			DefaultHorizon:         viper.GetInt("ENGINE_DEFAULT_HORIZON"),
			FEIWindowDays:          viper.GetInt("ENGINE_FEI_WINDOW_DAYS"),
			DeviationNoise:         viper.GetFloat64("ENGINE_DEVIATION_NOISE"),
			DeviationTopN:          viper.GetInt("ENGINE_DEVIATION_TOP_N"),
			DeviationCriticalPct:   viper.GetFloat64("ENGINE_DEVIATION_CRITICAL_PCT"),
			RefreshIntervalSeconds: viper.GetInt("ENGINE_REFRESH_INTERVAL_SECONDS"),
		},
	}
}

// DefaultEngineConfig returns the engine defaults without touching the
// environment.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LTF:                    0.2,
		HistoricalWeight:       0.4,
		RecentWeight:           0.6,
		IncludeSales:           true,
		IncludeConsumption:     true,
		ABCShareA:              0.2,
		ABCShareB:              0.3,
		XYZXMax:                0.5,
		XYZYMax:                0.8,
		RotationHigh:           6,
		RotationMedium:         2,
		PeriodicityHigh:        5,
		PeriodicityMedium:      3,
		ExcessMultiplier:       1.5,
		LowCoverageDays:        15,
		HighCoverageDays:       45,
		DefaultHorizon:         30,
		DeviationNoise:         10,
		DeviationTopN:          50,
		DeviationCriticalPct:   20,
		RefreshIntervalSeconds: 300,
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}

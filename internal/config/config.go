package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dronemap/footprints/internal/metadata"
	"github.com/dronemap/footprints/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "footprints.cfg.json"

// Storage backend names accepted in storage.backends. GeoJSON artifacts are
// always written and need not be listed.
const (
	BackendGeoJSON   = "geojson"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendWebSocket = "websocket"
	BackendInflux    = "influx"
)

// RunConfig holds the options of one batch run.
type RunConfig struct {
	InputFolder    string
	OutputFolder   string
	Height         core.Opt[float64]
	Pitch          core.Opt[float64]
	SensorWidth    core.Opt[float64]
	SensorHeight   core.Opt[float64]
	KeepOnlyMerged bool
	Extractor      string
}

// SQLiteConfig holds the SQLite catalogue settings.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds the Postgres catalogue connection.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// DSN formats the connection string for the Postgres driver.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		p.Host, p.Port, p.Username, p.Password, p.Database, p.SSLMode)
}

// WebSocketConfig holds the live viewer stream settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// S3Config is used when the output folder is an s3:// URL.
type S3Config struct {
	Region    string `json:"region" mapstructure:"region"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `json:"pathStyle" mapstructure:"pathStyle"`
}

// StorageConfig selects and configures the storage backends.
type StorageConfig struct {
	Backends  []string
	SQLite    SQLiteConfig
	Postgres  PostgresConfig
	WebSocket WebSocketConfig
	S3        S3Config
}

// InfluxConfig holds the metrics sink settings.
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SensorEntry is one configured camera model.
type SensorEntry struct {
	Model  string  `json:"model" mapstructure:"model"`
	Width  float64 `json:"width" mapstructure:"width"`
	Height float64 `json:"height" mapstructure:"height"`
}

// YawFieldEntry selects the yaw tag for a camera model.
type YawFieldEntry struct {
	Model string `json:"model" mapstructure:"model"`
	Field string `json:"field" mapstructure:"field"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./footprintlogs")

	viper.SetDefault("run.keepOnlyMerged", true)
	viper.SetDefault("run.extractor", "auto")

	viper.SetDefault("storage.backends", []string{BackendGeoJSON})
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "footprints")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("ws.url", "")
	viper.SetDefault("ws.secret", "")

	viper.SetDefault("s3.region", "")
	viper.SetDefault("s3.endpoint", "")
	viper.SetDefault("s3.pathStyle", false)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "footprints")
	viper.SetDefault("influx.bucket", "footprints")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "footprints")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets default values and reads the JSON config file from configDir.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// LoadOptional is Load without requiring the file to exist.
func LoadOptional(configDir string) error {
	err := Load(configDir)
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func optFloat(key string) core.Opt[float64] {
	if !viper.IsSet(key) {
		return core.NA[float64]()
	}
	return core.Some(viper.GetFloat64(key))
}

// GetRunConfig returns the run options. Overrides are unavailable unless set.
func GetRunConfig() RunConfig {
	return RunConfig{
		InputFolder:    viper.GetString("run.inputFolder"),
		OutputFolder:   viper.GetString("run.outputFolder"),
		Height:         optFloat("run.heightOverride"),
		Pitch:          optFloat("run.pitchOverride"),
		SensorWidth:    optFloat("run.sensorWidth"),
		SensorHeight:   optFloat("run.sensorHeight"),
		KeepOnlyMerged: viper.GetBool("run.keepOnlyMerged"),
		Extractor:      viper.GetString("run.extractor"),
	}
}

// Validate rejects options the pipeline cannot run with.
func (c RunConfig) Validate() error {
	if c.InputFolder == "" {
		return core.Invalid("inputFolder", c.InputFolder, "is required")
	}
	if c.OutputFolder == "" {
		return core.Invalid("outputFolder", c.OutputFolder, "is required")
	}
	if h, ok := c.Height.Get(); ok && !(h > 0) {
		return core.Invalid("heightOverride", h, "must be positive")
	}
	if p, ok := c.Pitch.Get(); ok && (math.IsNaN(p) || p <= -90 || p > 0) {
		return core.Invalid("pitchOverride", p, "must lie in (-90, 0]")
	}
	if c.SensorWidth.OK() != c.SensorHeight.OK() {
		return core.Invalid("sensorDimensionsOverride", nil, "width and height must be given together")
	}
	if w, ok := c.SensorWidth.Get(); ok {
		h, _ := c.SensorHeight.Get()
		if !(core.SensorSize{Width: w, Height: h}).Valid() {
			return core.Invalid("sensorDimensionsOverride", []float64{w, h}, "both dimensions must be positive")
		}
	}
	return nil
}

// SensorSize combines the sensor override pair.
func (c RunConfig) SensorSize() core.Opt[core.SensorSize] {
	w, okW := c.SensorWidth.Get()
	h, okH := c.SensorHeight.Get()
	if !okW || !okH {
		return core.NA[core.SensorSize]()
	}
	return core.Some(core.SensorSize{Width: w, Height: h})
}

// Overrides converts the run options into resolver overrides.
func (c RunConfig) Overrides() metadata.Overrides {
	return metadata.Overrides{
		Height: c.Height,
		Pitch:  c.Pitch,
		Sensor: c.SensorSize(),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Backends: viper.GetStringSlice("storage.backends"),
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("ws.url"),
			Secret: viper.GetString("ws.secret"),
		},
		S3: S3Config{
			Region:    viper.GetString("s3.region"),
			Endpoint:  viper.GetString("s3.endpoint"),
			PathStyle: viper.GetBool("s3.pathStyle"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetSensorTable returns the built-in sensor table extended by the "sensors" list.
func GetSensorTable() (metadata.SensorTable, error) {
	var entries []SensorEntry
	if err := viper.UnmarshalKey("sensors", &entries); err != nil {
		return metadata.SensorTable{}, fmt.Errorf("reading sensors: %w", err)
	}
	extra := make(map[string]core.SensorSize, len(entries))
	for _, e := range entries {
		if e.Model == "" {
			return metadata.SensorTable{}, core.Invalid("sensors.model", e.Model, "is required")
		}
		extra[e.Model] = core.SensorSize{Width: e.Width, Height: e.Height}
	}
	return metadata.DefaultSensorTable().With(extra), nil
}

// GetYawFields returns the built-in yaw tag table extended by the "yawFields" list.
func GetYawFields() (metadata.YawFieldTable, error) {
	var entries []YawFieldEntry
	if err := viper.UnmarshalKey("yawFields", &entries); err != nil {
		return metadata.YawFieldTable{}, fmt.Errorf("reading yawFields: %w", err)
	}
	extra := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Model == "" || e.Field == "" {
			return metadata.YawFieldTable{}, core.Invalid("yawFields", e, "model and field are required")
		}
		extra[e.Model] = e.Field
	}
	return metadata.DefaultYawFieldTable().With(extra), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dronemap/footprints/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" },
		"run": { "inputFolder": "/data/in", "pitchOverride": -45 }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))

	run := GetRunConfig()
	assert.Equal(t, "/data/in", run.InputFolder)
	assert.Equal(t, core.Some(-45.0), run.Pitch)
	assert.False(t, run.Height.OK())
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./footprintlogs", viper.GetString("logsDir"))
	assert.Equal(t, true, viper.GetBool("run.keepOnlyMerged"))
	assert.Equal(t, "auto", viper.GetString("run.extractor"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "footprints", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "footprints", viper.GetString("otel.serviceName"))

	run := GetRunConfig()
	assert.True(t, run.KeepOnlyMerged)
	assert.False(t, run.Pitch.OK())
	assert.False(t, run.SensorSize().OK())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadOptional_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, LoadOptional(t.TempDir()))
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestLoadOptional_BrokenFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	assert.Error(t, LoadOptional(writeConfig(t, `{ not json`)))
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestRunConfig_Validate(t *testing.T) {
	valid := RunConfig{InputFolder: "/in", OutputFolder: "/out", KeepOnlyMerged: true}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		apply func(*RunConfig)
	}{
		{"no input", func(c *RunConfig) { c.InputFolder = "" }},
		{"no output", func(c *RunConfig) { c.OutputFolder = "" }},
		{"pitch -90", func(c *RunConfig) { c.Pitch = core.Some(-90.0) }},
		{"pitch positive", func(c *RunConfig) { c.Pitch = core.Some(5.0) }},
		{"zero height", func(c *RunConfig) { c.Height = core.Some(0.0) }},
		{"width only", func(c *RunConfig) { c.SensorWidth = core.Some(13.2) }},
		{"zero sensor", func(c *RunConfig) {
			c.SensorWidth = core.Some(0.0)
			c.SensorHeight = core.Some(8.8)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.apply(&c)
			assert.ErrorIs(t, c.Validate(), core.ErrValidation)
		})
	}

	ok := valid
	ok.Pitch = core.Some(0.0)
	ok.SensorWidth = core.Some(13.2)
	ok.SensorHeight = core.Some(8.8)
	require.NoError(t, ok.Validate())
	assert.Equal(t, core.Some(core.SensorSize{Width: 13.2, Height: 8.8}), ok.SensorSize())
	assert.Equal(t, core.Some(0.0), ok.Overrides().Pitch)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, []string{BackendGeoJSON}, cfg.Backends)
	assert.Equal(t, time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=footprints sslmode=disable", cfg.Postgres.DSN())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"backends": ["geojson", "sqlite", "websocket"],
			"sqlite": { "path": "/tmp/catalogue.db", "dumpInterval": "10m" }
		},
		"ws": { "url": "ws://viewer:8080/stream", "secret": "s" },
		"s3": { "region": "ap-southeast-2", "pathStyle": true }
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, []string{"geojson", "sqlite", "websocket"}, sc.Backends)
	assert.Equal(t, "/tmp/catalogue.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://viewer:8080/stream", sc.WebSocket.URL)
	assert.Equal(t, "ap-southeast-2", sc.S3.Region)
	assert.True(t, sc.S3.PathStyle)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "metrics", "protocol": "https"}}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https://metrics:8086", ic.URL)
	assert.Equal(t, "footprints", ic.Bucket)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetSensorTable(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"sensors": [ { "model": "L2", "width": 17.3, "height": 13 } ],
		"yawFields": [ { "model": "M30T", "field": "FlightYawDegree" } ]
	}`)))

	table, err := GetSensorTable()
	require.NoError(t, err)
	size, ok := table.Lookup("L2")
	assert.True(t, ok)
	assert.Equal(t, core.SensorSize{Width: 17.3, Height: 13}, size)
	_, ok = table.Lookup("ZenmuseP1")
	assert.True(t, ok)

	yaw, err := GetYawFields()
	require.NoError(t, err)
	assert.Equal(t, "FlightYawDegree", yaw.Field("M30T"))
	assert.Equal(t, "FlightYawDegree", yaw.Field("FC3682"))
}

func TestGetSensorTable_MissingModel(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"sensors": [ { "width": 1, "height": 1 } ]}`)))

	_, err := GetSensorTable()
	assert.ErrorIs(t, err, core.ErrValidation)
}

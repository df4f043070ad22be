package config

import (
	"os"
	"path"
	"strconv"

	"gopkg.in/yaml.v2"
)

// SysConfig system level config
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig web api server config
type WebConfig struct {
	Host  string `yaml:"host" json:"host"`
	Port  int    `yaml:"port" json:"port"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// DBConfig database config, postgres for production and sqlite for small site
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// ProbeTarget a dependent service checked by the health orchestrator.
// Kind is one of database, realtime, functions, http. Database targets
// reuse the main connection and need no endpoint.
type ProbeTarget struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

// TierBoundsConfig overrides one metric family's tier bounds, bounds left
// zero keep the platform defaults
type TierBoundsConfig struct {
	Excellent  float64 `yaml:"excellent" json:"excellent"`
	Good       float64 `yaml:"good" json:"good"`
	Acceptable float64 `yaml:"acceptable" json:"acceptable"`
	Poor       float64 `yaml:"poor" json:"poor"`
}

// AvailabilityBoundsConfig overrides the availability floors
type AvailabilityBoundsConfig struct {
	Target   float64 `yaml:"target" json:"target"`
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// ThresholdsConfig per-deployment SLA tier tuning
type ThresholdsConfig struct {
	ResponseTime TierBoundsConfig         `yaml:"response_time" json:"response_time"`
	ErrorRate    TierBoundsConfig         `yaml:"error_rate" json:"error_rate"`
	Availability AvailabilityBoundsConfig `yaml:"availability" json:"availability"`
}

// MonitorConfig tuning knobs for the monitoring engine. Window and deadline
// values use the short duration form (30s, 5m, 1h, 1d).
type MonitorConfig struct {
	DefaultWindow  string           `yaml:"default_window" json:"default_window"`
	MaxBatchSize   int              `yaml:"max_batch_size" json:"max_batch_size"`
	EvalWorkers    int              `yaml:"eval_workers" json:"eval_workers"`
	HealthDeadline string           `yaml:"health_deadline" json:"health_deadline"`
	ProbeTimeout   string           `yaml:"probe_timeout" json:"probe_timeout"`
	GoodLatencyMs  int64            `yaml:"good_latency_ms" json:"good_latency_ms"`
	SLATargetMs    int64            `yaml:"sla_target_ms" json:"sla_target_ms"`
	RetentionDays  int              `yaml:"retention_days" json:"retention_days"`
	Thresholds     ThresholdsConfig `yaml:"thresholds" json:"thresholds"`
	Targets        []ProbeTarget    `yaml:"targets" json:"targets"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
	Monitor  MonitorConfig `yaml:"monitor" json:"monitor"`
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(path.Join(c.System.Workdir, "logs"), 0o755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "metrics"), 0o755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "data"), 0o755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "PulseWatch",
		Location: "Asia/Jakarta",
		Workdir:  "/var/pulsewatch",
		Debug:    true,
	},
	Web: WebConfig{
		Host:  "0.0.0.0",
		Port:  1880,
		Debug: true,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "pulsewatch",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/pulsewatch/pulsewatch.log",
	},
	Monitor: MonitorConfig{
		DefaultWindow:  "5m",
		MaxBatchSize:   1000,
		EvalWorkers:    8,
		HealthDeadline: "10s",
		ProbeTimeout:   "2s",
		GoodLatencyMs:  500,
		SLATargetMs:    2000,
		RetentionDays:  30,
		Targets: []ProbeTarget{
			{Name: "database", Kind: "database"},
		},
	},
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		p, err := strconv.Atoi(evalue)
		if err == nil {
			*val = p
		}
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue == "true" || evalue == "1" || evalue == "on"
	}
}

// LoadConfig reads the yaml file when present, otherwise starts from
// defaults, then applies PULSEWATCH_ environment overrides.
func LoadConfig(cfile string) *AppConfig {
	appconfig := new(AppConfig)
	*appconfig = *DefaultAppConfig
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err == nil {
			// unmarshal over the defaults so omitted keys keep their values
			if err := yaml.Unmarshal(data, appconfig); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("PULSEWATCH_SYSTEM_WORKDIR", &appconfig.System.Workdir)
	setEnvBoolValue("PULSEWATCH_SYSTEM_DEBUG", &appconfig.System.Debug)

	setEnvValue("PULSEWATCH_WEB_HOST", &appconfig.Web.Host)
	setEnvIntValue("PULSEWATCH_WEB_PORT", &appconfig.Web.Port)

	setEnvValue("PULSEWATCH_DB_TYPE", &appconfig.Database.Type)
	setEnvValue("PULSEWATCH_DB_HOST", &appconfig.Database.Host)
	setEnvIntValue("PULSEWATCH_DB_PORT", &appconfig.Database.Port)
	setEnvValue("PULSEWATCH_DB_NAME", &appconfig.Database.Name)
	setEnvValue("PULSEWATCH_DB_USER", &appconfig.Database.User)
	setEnvValue("PULSEWATCH_DB_PWD", &appconfig.Database.Passwd)
	setEnvBoolValue("PULSEWATCH_DB_DEBUG", &appconfig.Database.Debug)

	setEnvValue("PULSEWATCH_LOGGER_MODE", &appconfig.Logger.Mode)
	setEnvBoolValue("PULSEWATCH_LOGGER_FILE_ENABLE", &appconfig.Logger.FileEnable)

	setEnvValue("PULSEWATCH_MONITOR_DEFAULT_WINDOW", &appconfig.Monitor.DefaultWindow)
	setEnvIntValue("PULSEWATCH_MONITOR_MAX_BATCH_SIZE", &appconfig.Monitor.MaxBatchSize)
	setEnvIntValue("PULSEWATCH_MONITOR_RETENTION_DAYS", &appconfig.Monitor.RetentionDays)

	return appconfig
}

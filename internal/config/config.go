package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	Env      string // "dev" | "prod"
	LogLevel string

	// Listeners
	ListenAddr string // door-event TCP listener
	HTTPAddr   string // monitor API
	GRPCAddr   string // health service; empty disables

	// This station's own door, used for local decisions.
	DoorName string

	// Audit log
	AuditBackend  string // "sqlite" | "jsonl" | "memory"
	DBPath        string
	AuditLogPath  string
	CSVExportPath string

	// Station files
	UsersPath   string
	StationPath string

	// Aggregator limits
	RingCapacity    int
	MaxPayloadBytes int
	ReadTimeout     time.Duration
	CommandTimeout  time.Duration

	// Deny a grant when the camera cannot produce a snapshot.
	RequireSnapshot bool
	SnapshotDir     string

	// Optional AMQP fan-out of door events.
	AMQPURL      string
	AMQPExchange string
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("GATEWISE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	backend := strings.ToLower(getenvDefault("GATEWISE_AUDIT_BACKEND", "sqlite"))

	return Config{
		Env:      env,
		LogLevel: getenvDefault("GATEWISE_LOG_LEVEL", "info"),

		ListenAddr: getenvDefault("GATEWISE_LISTEN_ADDR", ":5005"),
		HTTPAddr:   getenvDefault("GATEWISE_HTTP_ADDR", ":8080"),
		GRPCAddr:   os.Getenv("GATEWISE_GRPC_ADDR"),

		DoorName: getenvDefault("GATEWISE_DOOR_NAME", "main"),

		AuditBackend:  backend,
		DBPath:        getenvDefault("GATEWISE_DB_PATH", "./data/gatewise.db"),
		AuditLogPath:  getenvDefault("GATEWISE_AUDIT_LOG_PATH", "./data/logs.jsonl"),
		CSVExportPath: getenvDefault("GATEWISE_CSV_EXPORT_PATH", "./data/access_logs.csv"),

		UsersPath:   getenvDefault("GATEWISE_USERS_PATH", "./data/users.json"),
		StationPath: getenvDefault("GATEWISE_STATION_PATH", "./data/config.json"),

		RingCapacity:    getenvInt("GATEWISE_RING_CAPACITY", 100),
		MaxPayloadBytes: getenvInt("GATEWISE_MAX_PAYLOAD_BYTES", 4096),
		ReadTimeout:     getenvDuration("GATEWISE_READ_TIMEOUT", 5*time.Second),
		CommandTimeout:  getenvDuration("GATEWISE_COMMAND_TIMEOUT", 3*time.Second),

		RequireSnapshot: getenvBool("GATEWISE_REQUIRE_SNAPSHOT"),
		SnapshotDir:     getenvDefault("GATEWISE_SNAPSHOT_DIR", "./assets/snapshots"),

		AMQPURL:      os.Getenv("GATEWISE_AMQP_URL"),
		AMQPExchange: getenvDefault("GATEWISE_AMQP_EXCHANGE", "gatewise.events"),
	}
}

// BindFlags registers command-line overrides on fs. Current field values
// become the flag defaults, so call it after FromEnv.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Env, "env", c.Env, "environment (dev|prod)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "door event TCP listen address")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "monitor HTTP listen address")
	fs.StringVar(&c.GRPCAddr, "grpc", c.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&c.DoorName, "door", c.DoorName, "name of this station's door")
	fs.StringVar(&c.AuditBackend, "audit-backend", c.AuditBackend, "audit log backend (sqlite|jsonl|memory)")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "sqlite database path")
	fs.StringVar(&c.AuditLogPath, "audit-log", c.AuditLogPath, "JSONL audit log path")
	fs.StringVar(&c.UsersPath, "users", c.UsersPath, "user registry file")
	fs.StringVar(&c.StationPath, "station", c.StationPath, "station config file (admin PIN, blackout schedule)")
	fs.IntVar(&c.RingCapacity, "ring", c.RingCapacity, "number of recent events kept for monitoring")
	fs.IntVar(&c.MaxPayloadBytes, "max-payload", c.MaxPayloadBytes, "maximum inbound message size in bytes")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "per-connection read timeout")
	fs.DurationVar(&c.CommandTimeout, "command-timeout", c.CommandTimeout, "outbound command dial/write timeout")
	fs.BoolVar(&c.RequireSnapshot, "require-snapshot", c.RequireSnapshot, "deny grants when no camera snapshot is captured")
	fs.StringVar(&c.SnapshotDir, "snapshot-dir", c.SnapshotDir, "directory camera snapshots are named under (empty disables)")
	fs.StringVar(&c.CSVExportPath, "csv-export", c.CSVExportPath, "default CSV export path")
	fs.StringVar(&c.AMQPURL, "amqp-url", c.AMQPURL, "publish door events to this AMQP broker")
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

package limboconf

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Config is the limbo's on-disk configuration, loaded the way the
// teacher loads its own JSON config (network/coordinator/main.go's
// loadConfig): read the whole file, unmarshal into a known shape.
type Config struct {
	InstanceID           string        `json:"instance_id"`
	Replicas             []string      `json:"replicas"`
	Quorum               int           `json:"quorum"`
	ReplicationTimeout   time.Duration `json:"replication_timeout"`
	MaxQueueSize         int64         `json:"max_queue_size"`
	ConfirmBatchWindow   time.Duration `json:"confirm_batch_window"`
	WALDir               string        `json:"wal_dir"`
	CheckpointBackend    string        `json:"checkpoint_backend"` // "file" or "mongo"
	MongoURI             string        `json:"mongo_uri"`
	GRPCAddress          string        `json:"grpc_address"`
}

// Default returns the compiled-in defaults, used when no config file
// is present (the teacher always requires one; we allow falling back).
func Default() *Config {
	return &Config{
		Quorum:             DefaultQuorum,
		ReplicationTimeout: DefaultReplicationTimeout,
		MaxQueueSize:       DefaultMaxQueueSize,
		ConfirmBatchWindow: DefaultConfirmBatchWindow,
		WALDir:             "./logs",
		CheckpointBackend:  "file",
		GRPCAddress:        "127.0.0.1:7601",
	}
}

// Load reads and parses a JSON config file, falling back to Default()
// fields for anything the file omits.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("limboconf: read config %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("limboconf: parse config %q: %w", path, err)
	}
	if cfg.Quorum <= 0 {
		cfg.Quorum = DefaultQuorum
	}
	return cfg, nil
}

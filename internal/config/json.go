package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Duration wraps time.Duration so JSON config files can use human-readable
// strings ("5m", "30s") as well as raw nanosecond integers.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return errors.New("invalid duration value")
	}
}

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-friendly durations for file-based configuration.
type StructuredJSONConfig struct {
	Remote struct {
		BaseURL        string   `json:"base_url"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"remote,omitempty"`

	Engine struct {
		SyncInterval  Duration `json:"sync_interval"`
		BatchSize     int      `json:"batch_size"`
		RetryCeiling  int      `json:"retry_ceiling"`
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"engine,omitempty"`

	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	Logging struct {
		FilePath string `json:"file_path"`
	} `json:"logging,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Remote: Remote{
			BaseURL:        jsonCfg.Remote.BaseURL,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
		},
		Engine: Engine{
			SyncInterval:  time.Duration(jsonCfg.Engine.SyncInterval),
			BatchSize:     jsonCfg.Engine.BatchSize,
			RetryCeiling:  jsonCfg.Engine.RetryCeiling,
			ProbeInterval: time.Duration(jsonCfg.Engine.ProbeInterval),
		},
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		Logging: Logging{
			FilePath: jsonCfg.Logging.FilePath,
		},
	}

	return cfg, nil
}

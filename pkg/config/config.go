// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the typed, TOML-loadable configuration for a pool
// and its optional monitoring server.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Duration wraps time.Duration so it can be parsed from a TOML string such
// as "1s" or "500us" instead of a raw integer of nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for BurntSushi/toml.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(err, "config: invalid duration")
	}
	d.Duration = parsed
	return nil
}

// Pool is the on-disk shape of a pool's startup configuration.
type Pool struct {
	Name              string   `toml:"name"`
	WorkerCount       int      `toml:"worker-count"`
	LowWatermark      int      `toml:"low-watermark"`
	HighWatermark     int      `toml:"high-watermark"`
	AutoStart         bool     `toml:"auto-start"`
	ControllerIdle    Duration `toml:"controller-idle"`
	WorkerIdle        Duration `toml:"worker-idle"`
}

// Monitoring is the on-disk shape of the read-only status/metrics server.
type Monitoring struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Logging controls the pkg/logger backend.
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Root is the full on-disk configuration for cmd/threadpoolctl.
type Root struct {
	Pool       Pool       `toml:"pool"`
	Monitoring Monitoring `toml:"monitoring"`
	Logging    Logging    `toml:"logging"`
}

// DefaultRoot returns the configuration a pool starts with when no file is
// given.
func DefaultRoot() Root {
	return Root{
		Pool: Pool{
			Name:           "default",
			WorkerCount:    1,
			LowWatermark:   1,
			HighWatermark:  1,
			AutoStart:      true,
			ControllerIdle: Duration{1000 * time.Microsecond},
			WorkerIdle:     Duration{1000 * time.Microsecond},
		},
		Monitoring: Monitoring{
			Enabled: false,
			Addr:    "127.0.0.1:8600",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads and parses a TOML configuration file, filling any field the
// file omits with DefaultRoot's value.
func Load(path string) (Root, error) {
	root := DefaultRoot()
	if path == "" {
		return root, nil
	}
	if _, err := toml.DecodeFile(path, &root); err != nil {
		return Root{}, errors.Wrapf(err, "config: failed to decode %s", path)
	}
	return root, nil
}

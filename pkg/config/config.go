/*
 * Copyright (C) 2024 SensorObs, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package config

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/api"
)

// GenericMap is a decoded inbound frame payload.
type GenericMap map[string]interface{}

// Copy returns a shallow copy of the map.
func (m GenericMap) Copy() GenericMap {
	out := make(GenericMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Options holds the raw command-line / environment configuration. The
// Detector, Session and Exporter fields carry JSON-encoded sections that
// ParseConfig unmarshals into their api structs.
type Options struct {
	Detector string
	Session  string
	Exporter string
	Health   Health
	Metrics  Metrics
	Profile  Profile
}

type Health struct {
	Address string
	Port    string
}

type Metrics struct {
	Port int
}

type Profile struct {
	Port int
}

// ConfigFileStruct is the internal unmarshalled representation of the
// configuration sections.
type ConfigFileStruct struct {
	Detector api.Detector
	Session  api.Session
	Exporter api.ExporterKafka
	Health   Health
	Metrics  Metrics
}

// ParseConfig creates the internal unmarshalled representation from the
// section strings in opts.
func ParseConfig(opts *Options) (ConfigFileStruct, error) {
	out := ConfigFileStruct{
		Health:  opts.Health,
		Metrics: opts.Metrics,
	}
	if opts.Detector != "" {
		if err := json.Unmarshal([]byte(opts.Detector), &out.Detector); err != nil {
			return out, errors.Wrap(err, "error reading detector config")
		}
	}
	if opts.Session != "" {
		if err := json.Unmarshal([]byte(opts.Session), &out.Session); err != nil {
			return out, errors.Wrap(err, "error reading session config")
		}
	}
	if opts.Exporter != "" {
		if err := json.Unmarshal([]byte(opts.Exporter), &out.Exporter); err != nil {
			return out, errors.Wrap(err, "error reading exporter config")
		}
	}
	return out, nil
}

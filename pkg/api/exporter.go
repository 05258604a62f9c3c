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

package api

// ExporterKafka describes configuration for the kafka anomaly-event exporter.
// The exporter is inactive unless an address is provided.
type ExporterKafka struct {
	Address             string `yaml:"address,omitempty" json:"address,omitempty" doc:"address of the kafka server"`
	Topic               string `yaml:"topic,omitempty" json:"topic,omitempty" doc:"kafka topic to which anomaly events are published (default sensor-anomalies)"`
	BatchSize           int    `yaml:"batchSize,omitempty" json:"batchSize,omitempty" doc:"limit on how many events are buffered before being sent"`
	WriteTimeoutSeconds int64  `yaml:"writeTimeoutSeconds,omitempty" json:"writeTimeoutSeconds,omitempty" doc:"timeout (in seconds) for write operations (default 10)"`
}

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

const TagYaml = "yaml"
const TagDoc = "doc"

// API lists the configuration sections recognized by the service.
type API struct {
	Detector Detector      `yaml:"detector" doc:"## Detector API\nFollowing is the supported API format for the anomaly detector:\n"`
	Session  Session       `yaml:"session" doc:"## Session API\nFollowing is the supported API format for the stream session:\n"`
	Exporter ExporterKafka `yaml:"exporter" doc:"## Exporter API\nFollowing is the supported API format for the kafka anomaly exporter:\n"`
}

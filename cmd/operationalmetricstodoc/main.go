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

package main

import (
	"fmt"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"

	// imported for their metric declarations
	_ "github.com/sensorobs/sensor-anomaly-pipeline/pkg/detector"
	_ "github.com/sensorobs/sensor-anomaly-pipeline/pkg/service"
	_ "github.com/sensorobs/sensor-anomaly-pipeline/pkg/session"
)

func main() {
	header := `
> Note: this file was automatically generated, to update execute "go run ./cmd/operationalmetricstodoc"

# sensor-anomaly-pipeline Operational Metrics

Each table below provides documentation for an exported sensor-anomaly-pipeline operational metric.

	`
	doc := operational.GetDocumentation()
	fmt.Printf("%s\n%s\n", header, doc)
}

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

package detector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/operational"
)

var (
	predictionsTotalDef = operational.DefineMetric(
		"detector_predictions_total",
		"Counter of predictions served, by scoring path",
		operational.TypeCounter,
		"path",
	)
	anomaliesTotalDef = operational.DefineMetric(
		"detector_anomalies_total",
		"Counter of predictions whose final score exceeded the anomaly threshold",
		operational.TypeCounter,
	)
	retrainsTotalDef = operational.DefineMetric(
		"detector_retrains_total",
		"Counter of model training attempts, by result",
		operational.TypeCounter,
		"result",
	)
	bufferOccupancyDef = operational.DefineMetric(
		"detector_buffer_occupancy",
		"Current number of samples buffered for training",
		operational.TypeGauge,
	)
)

type metricsType struct {
	predictions     *prometheus.CounterVec
	anomalies       prometheus.Counter
	retrains        *prometheus.CounterVec
	bufferOccupancy prometheus.Gauge
}

func newMetrics(opMetrics *operational.Metrics) *metricsType {
	return &metricsType{
		predictions:     opMetrics.NewCounterVec(&predictionsTotalDef),
		anomalies:       opMetrics.NewCounter(&anomaliesTotalDef),
		retrains:        opMetrics.NewCounterVec(&retrainsTotalDef),
		bufferOccupancy: opMetrics.NewGauge(&bufferOccupancyDef),
	}
}

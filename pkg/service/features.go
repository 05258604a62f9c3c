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

package service

import (
	"math"

	ms "github.com/mitchellh/mapstructure"

	"github.com/sensorobs/sensor-anomaly-pipeline/pkg/config"
)

// FeatureCount is the fixed dimension of extracted feature vectors.
const FeatureCount = 14

type axes struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

type sensorReading struct {
	RawAcceleration axes      `mapstructure:"raw_acceleration"`
	RawGyroscope    axes      `mapstructure:"raw_gyroscope"`
	EulerDegrees    []float64 `mapstructure:"euler_degrees"`
	Velocity        axes      `mapstructure:"velocity"`
	GPSSpeed        float64   `mapstructure:"gps_speed"`
	GPSHeading      float64   `mapstructure:"gps_heading"`
	Confidence      *float64  `mapstructure:"confidence"`
	SystemHealth    *float64  `mapstructure:"system_health"`
}

// ExtractFeatures builds the fixed-order feature vector from a decoded sensor
// payload: accelerometer xyz, gyroscope xyz, three orientation angles,
// velocity magnitude, GPS speed and heading, confidence and system health.
// Missing numeric fields default to 0 (confidence and system health to 1);
// a structurally broken payload yields the zero vector.
func ExtractFeatures(payload config.GenericMap) []float64 {
	var reading sensorReading
	decoder, err := ms.NewDecoder(&ms.DecoderConfig{
		Result:           &reading,
		WeaklyTypedInput: true,
	})
	if err == nil {
		err = decoder.Decode(map[string]interface{}(payload))
	}
	if err != nil {
		flog.Errorf("feature extraction error: %v", err)
		return make([]float64, FeatureCount)
	}

	confidence := 1.0
	if reading.Confidence != nil {
		confidence = *reading.Confidence
	}
	systemHealth := 1.0
	if reading.SystemHealth != nil {
		systemHealth = *reading.SystemHealth
	}

	euler := [3]float64{}
	copy(euler[:], reading.EulerDegrees)

	velocityMagnitude := math.Sqrt(
		reading.Velocity.X*reading.Velocity.X +
			reading.Velocity.Y*reading.Velocity.Y +
			reading.Velocity.Z*reading.Velocity.Z)

	return []float64{
		reading.RawAcceleration.X,
		reading.RawAcceleration.Y,
		reading.RawAcceleration.Z,
		reading.RawGyroscope.X,
		reading.RawGyroscope.Y,
		reading.RawGyroscope.Z,
		euler[0],
		euler[1],
		euler[2],
		velocityMagnitude,
		reading.GPSSpeed,
		reading.GPSHeading,
		confidence,
		systemHealth,
	}
}

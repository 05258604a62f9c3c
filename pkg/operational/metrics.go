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

package operational

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type MetricType string

const (
	TypeCounter MetricType = "counter"
	TypeGauge   MetricType = "gauge"
)

// MetricDefinition describes a metric exposed by the service; definitions are
// declared next to the component that maintains them.
type MetricDefinition struct {
	Name   string
	Help   string
	Type   MetricType
	Labels []string
}

var allMetrics = []MetricDefinition{}

func DefineMetric(name, help string, t MetricType, labels ...string) MetricDefinition {
	def := MetricDefinition{
		Name:   name,
		Help:   help,
		Type:   t,
		Labels: labels,
	}
	allMetrics = append(allMetrics, def)
	return def
}

// GetDefinitions returns all metric definitions declared so far; used for
// documentation generation.
func GetDefinitions() []MetricDefinition {
	return allMetrics
}

// GetDocumentation renders a markdown table per declared metric.
func GetDocumentation() string {
	doc := ""
	for _, def := range allMetrics {
		doc += fmt.Sprintf(
			`
### %s
| **Name** | %s%s |
|:---|:---|
| **Description** | %s |
| **Type** | %s |
| **Labels** | %s |

`,
			def.Name,
			namespace,
			def.Name,
			def.Help,
			def.Type,
			strings.Join(def.Labels, ", "),
		)
	}

	return doc
}

// Metrics registers metrics against a prometheus registerer, prefixing names
// with the service namespace.
type Metrics struct {
	registerer prometheus.Registerer
}

const namespace = "sensoranomaly_"

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{registerer: registerer}
}

func (o *Metrics) register(c prometheus.Collector, name string) {
	if o == nil || o.registerer == nil {
		return
	}
	if err := o.registerer.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			log.Debugf("metric %s already registered", name)
			return
		}
		log.Errorf("metrics registration error [%s]: %v", name, err)
	}
}

func (o *Metrics) NewCounter(def *MetricDefinition) prometheus.Counter {
	verifyMetricType(def, TypeCounter)
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: namespace + def.Name, Help: def.Help})
	o.register(c, def.Name)
	return c
}

func (o *Metrics) NewCounterVec(def *MetricDefinition) *prometheus.CounterVec {
	verifyMetricType(def, TypeCounter)
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: namespace + def.Name, Help: def.Help}, def.Labels)
	o.register(c, def.Name)
	return c
}

func (o *Metrics) NewGauge(def *MetricDefinition) prometheus.Gauge {
	verifyMetricType(def, TypeGauge)
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: namespace + def.Name, Help: def.Help})
	o.register(g, def.Name)
	return g
}

func verifyMetricType(def *MetricDefinition, t MetricType) {
	if def.Type != t {
		log.Panicf("operational metric %q is of type %q but is being registered as %q", def.Name, def.Type, t)
	}
}

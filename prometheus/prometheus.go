// Mgmt
// Copyright (C) 2013-2018+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package prometheus provides functions that are useful to control and manage
// the prometheus metrics of the chase engine.
package prometheus

import (
	"context"
	"net/http"
	"strconv"

	"github.com/purpleidea/datalog/util/errwrap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is registered in
// https://github.com/prometheus/prometheus/wiki/Default-port-allocations
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is the struct that contains information about the prometheus
// instance. Run Init() on it.
type Prometheus struct {
	Listen string // the listen specification for the net/http server

	// Registerer is where the metrics are registered. If it is nil, a new
	// registry is created, so that two engines never collide.
	Registerer prometheus.Registerer

	registry *prometheus.Registry // set if we created the registerer
	server   *http.Server

	chaseStepsTotal         *prometheus.CounterVec // total of rule applications
	tuplesDerivedTotal      *prometheus.CounterVec // total of new tuples per predicate
	chaseRoundsTotal        prometheus.Counter     // total of rounds of the solution
	processStartTimeSeconds prometheus.Gauge       // process start time in seconds since unix epoch
}

// Init some parameters and register the metrics.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	if obj.Registerer == nil {
		obj.registry = prometheus.NewRegistry()
		obj.Registerer = obj.registry
	}

	obj.chaseStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalog_chase_steps_total",
			Help: "Number of chase steps that have run.",
		},
		// Labels for this metric.
		// rule: the rule that was applied
		// productive: did the step derive any new tuple
		[]string{"rule", "productive"},
	)
	obj.tuplesDerivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datalog_chase_tuples_derived_total",
			Help: "Number of new tuples derived by the chase.",
		},
		[]string{"predicate"},
	)
	obj.chaseRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datalog_chase_rounds_total",
			Help: "Number of rounds of the chase solution.",
		},
	)
	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datalog_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)

	for _, c := range []prometheus.Collector{
		obj.chaseStepsTotal,
		obj.tuplesDerivedTotal,
		obj.chaseRoundsTotal,
		obj.processStartTimeSeconds,
	} {
		if err := obj.Registerer.Register(c); err != nil {
			return errwrap.Wrapf(err, "could not register metric")
		}
	}
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()

	return nil
}

// Start runs a http server in a go routine, that responds to /metrics as
// prometheus would expect.
func (obj *Prometheus) Start() error {
	var handler http.Handler = promhttp.Handler() // default gatherer
	if obj.registry != nil {
		handler = promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{})
	} else if g, ok := obj.Registerer.(prometheus.Gatherer); ok {
		handler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	obj.server = &http.Server{
		Addr:    obj.Listen,
		Handler: mux,
	}
	go obj.server.ListenAndServe()
	return nil
}

// Stop the http server.
func (obj *Prometheus) Stop() error {
	if obj.server == nil {
		return nil
	}
	return obj.server.Shutdown(context.Background())
}

// UpdateChaseStepTotal counts one application of the rule.
func (obj *Prometheus) UpdateChaseStepTotal(rule string, productive bool) error {
	labels := prometheus.Labels{"rule": rule, "productive": strconv.FormatBool(productive)}
	metric, err := obj.chaseStepsTotal.GetMetricWith(labels)
	if err != nil {
		return errwrap.Wrapf(err, "could not get metric")
	}
	metric.Inc()
	return nil
}

// AddTuplesDerived counts the new tuples that were derived for the predicate.
func (obj *Prometheus) AddTuplesDerived(predicate string, count int) error {
	metric, err := obj.tuplesDerivedTotal.GetMetricWithLabelValues(predicate)
	if err != nil {
		return errwrap.Wrapf(err, "could not get metric")
	}
	metric.Add(float64(count))
	return nil
}

// IncChaseRounds counts one round of the chase solution.
func (obj *Prometheus) IncChaseRounds() {
	obj.chaseRoundsTotal.Inc()
}

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

// Package monitoring serves a read-only status endpoint and a Prometheus
// scrape endpoint for a running pool. It exposes no way to submit work —
// only to observe it — honoring the Non-goal on cross-process scheduling.
package monitoring

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icke2063/threadpool/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the JSON shape returned by GET /status.
type Status struct {
	Ready         int `json:"ready"`
	Delayed       int `json:"delayed"`
	Workers       int `json:"workers"`
	LowWatermark  int `json:"low_watermark"`
	HighWatermark int `json:"high_watermark"`
}

// StatusSource supplies the live numbers behind GET /status.
// *concurrent.Pool satisfies it directly: its Watermarks method reports the
// Controller's current low/high watermark settings.
type StatusSource interface {
	ReadyCount() int
	DelayedCount() int
	WorkerCount() int
	Watermarks() (low, high int)
}

// Server is the monitoring HTTP server: /status and /metrics.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds a monitoring server bound to addr, sourcing /status from
// src and /metrics from reg (a prometheus.Gatherer, typically the same
// *prometheus.Registry passed to concurrent.Config.Registerer).
func NewServer(addr string, src StatusSource, reg prometheus.Gatherer) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		low, high := src.Watermarks()
		status := Status{
			Ready:         src.ReadyCount(),
			Delayed:       src.DelayedCount(),
			Workers:       src.WorkerCount(),
			LowWatermark:  low,
			HighWatermark: high,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		log:        logger.GetLogger("monitoring", "Server"),
	}
}

// Start runs the HTTP server in the background. Bind errors other than a
// clean shutdown are logged rather than returned.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("monitoring server stopped unexpectedly", logger.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

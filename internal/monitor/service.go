// Package monitor serves /metrics and /healthz, in the same Start/Stop/Status
// shape used throughout this module's services, with a healthzHandler that
// walks internal/runtime.ServiceRegistry's Statuses().
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/runtime"
)

var log = logrus.WithField("prefix", "monitor")

// Service serves prometheus metrics and a registry-driven health check.
type Service struct {
	server      *http.Server
	svcRegistry *runtime.ServiceRegistry
	failStatus  error
}

// New sets up a Service listening on addr (e.g. ":8080").
func New(addr string, svcRegistry *runtime.ServiceRegistry) *Service {
	s := &Service{svcRegistry: svcRegistry}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	statuses := s.svcRegistry.Statuses()
	hasError := false
	var buf bytes.Buffer
	for k, v := range statuses {
		status := "OK"
		if v != nil {
			hasError = true
			status = "ERROR " + v.Error()
		}
		if _, err := buf.WriteString(fmt.Sprintf("%s: %s\n", k, status)); err != nil {
			hasError = true
		}
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
		log.WithField("statuses", buf.String()).Warn("relayer is unhealthy")
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("could not write healthz body")
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	stack := debug.Stack()
	if _, err := w.Write(stack); err != nil {
		log.WithError(err).Error("could not write goroutine stack")
	}
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		log.WithError(err).Error("could not write pprof goroutines")
	}
}

// Start serves in the background, skipping if the port is already in use.
func (s *Service) Start() {
	go func() {
		addrParts := strings.Split(s.server.Addr, ":")
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", addrParts[len(addrParts)-1]), time.Second)
		if err == nil {
			_ = conn.Close()
			log.WithField("address", s.server.Addr).Warn("port already in use; cannot start monitor service")
			return
		}
		log.WithField("address", s.server.Addr).Debug("starting monitor service")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("monitor service stopped")
			s.failStatus = err
		}
	}()
}

// Stop shuts the HTTP server down gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports any listener failure.
func (s *Service) Status() error {
	return s.failStatus
}

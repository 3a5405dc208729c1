package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	minPort = 1024
	maxPort = 49151

	gigabyte = 1 << 30
)

// ServiceOpts holds configuration options for the metrics service.
type ServiceOpts struct {
	Port          int
	StatsInterval time.Duration
	// Datadir, if set, is where a snapshot of the registered metrics is
	// dumped when the service stops.
	Datadir string
}

func (o ServiceOpts) validate() error {
	if o.Port < minPort || o.Port > maxPort {
		return fmt.Errorf("port must be in range [%d, %d]", minPort, maxPort)
	}
	if o.StatsInterval < 0 {
		return fmt.Errorf("stats interval must not be negative")
	}
	return nil
}

func (o ServiceOpts) address() string {
	return fmt.Sprintf(":%d", o.Port)
}

// Service exposes the registered metrics on /metrics and periodically logs
// runtime statistics of the process.
type Service struct {
	opts   ServiceOpts
	server *http.Server
	stopFn context.CancelFunc

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewService(opts ServiceOpts) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              opts.address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("metrics: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("metrics: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &Service{opts, server, nil, logFn, warnFn}, nil
}

func (s *Service) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.warn(err, "server stopped unexpectedly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopFn = cancel
	if s.opts.StatsInterval > 0 {
		s.enableRuntimeStatistics(ctx, s.opts.StatsInterval)
	}

	s.log("start at url http://localhost:%d/metrics", s.opts.Port)
	return nil
}

func (s *Service) Stop() {
	if s.stopFn != nil {
		s.stopFn()
	}
	if len(s.opts.Datadir) > 0 {
		if err := s.dumpMetrics(s.opts.Datadir); err != nil {
			s.warn(err, "error while dumping metrics")
		}
	}
	// nolint
	s.server.Shutdown(context.Background())
	s.log("stop")
}

func (s *Service) enableRuntimeStatistics(
	ctx context.Context, interval time.Duration,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.printRuntimeStatistics()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) printRuntimeStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s.log(
		"heap allocated: %.3fGB, allocated objects count: %v, "+
			"freed objects count: %v, num of go routines: %v",
		float64(memStats.HeapAlloc)/gigabyte,
		memStats.Mallocs,
		memStats.Frees,
		runtime.NumGoroutine(),
	)
}

// dumpMetrics writes the gathered metrics to a file named after the current
// time in the given directory.
func (s *Service) dumpMetrics(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(
		filepath.Join(dir, fmt.Sprintf("metrics-%d", time.Now().Unix())),
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0644,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range metricFamilies {
		if _, err := writer.WriteString(mf.String() + "\n"); err != nil {
			return err
		}
	}
	return nil
}

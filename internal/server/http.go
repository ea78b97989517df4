package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/xtding233/lootsim/internal/config"
	"github.com/xtding233/lootsim/internal/logger"
	"github.com/xtding233/lootsim/internal/lootsim"
	"github.com/xtding233/lootsim/internal/output"
)

const (
	// SeedHeader carries the seed a batch was generated with.
	SeedHeader = "X-Lootsim-Seed"
	// ErrorTrailer is set when a CSV batch fails after rows were sent.
	ErrorTrailer = "X-Lootsim-Error"
)

func parseInt(r *http.Request, key string) (int, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

func parseUint64(r *http.Request, key string) (uint64, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

// Handler routes /simulate and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /simulate", s.handleSimulate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// GET /simulate?players=2&runs=100&seed=7&format=csv
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var o config.Overrides
	if v, ok, msg := parseInt(r, "players"); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	} else if ok {
		o.PlayerCount = &v
	}
	if v, ok, msg := parseInt(r, "runs"); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	} else if ok {
		o.RunCount = &v
	}
	if v, ok, msg := parseUint64(r, "seed"); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	} else if ok {
		o.Seed = &v
	}
	if f := r.URL.Query().Get("format"); f != "" {
		o.Format = &f
	}

	b, err := s.prepare(o)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set(SeedHeader, strconv.FormatUint(b.seed, 10))
	format := output.Format(b.format)

	// XLSX is buffered until Close; CSV is opened with the first run so that
	// a batch failing before any row can still answer with an error status.
	var out output.Writer
	if format == output.FormatXLSX {
		if out, err = output.Open(format, "", w, s.cat); err != nil {
			logger.Error("open writer", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	} else {
		w.Header().Set("Trailer", ErrorTrailer)
	}

	start := time.Now()
	ctx := r.Context()
	written := 0
	err = s.simulator(b).Simulate(b.req, func(run lootsim.Run) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if out == nil {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			var err error
			if out, err = output.Open(format, "", w, s.cat); err != nil {
				return err
			}
		}
		written++
		return out.WriteRun(run)
	})
	if err != nil {
		logger.Error("simulate request failed", "seed", b.seed, "runs_written", written, "error", err)
		if out != nil {
			_ = out.Abort()
		}
		if format == output.FormatXLSX || written == 0 {
			w.Header().Del("Trailer")
			http.Error(w, "simulation failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// rows are already on the wire; the trailer carries the failure
		w.Header().Set(ErrorTrailer, err.Error())
		return
	}

	if format == output.FormatXLSX {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="lootsim.xlsx"`)
	}
	if err := out.Close(); err != nil {
		logger.Error("finish response", "seed", b.seed, "error", err)
		if format == output.FormatCSV {
			w.Header().Set(ErrorTrailer, err.Error())
		}
		return
	}
	logger.Info("simulate request served",
		"players", b.req.PlayerCount, "runs", b.req.RunCount, "seed", b.seed,
		"format", b.format, "elapsed", time.Since(start))
}

// ListenHTTP listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenHTTP(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.serveHTTP(ctx, lis)
}

func (s *Server) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Always("http server listening", "addr", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Command markql-server exposes MarkQL parsing and execution over HTTP:
// POST /query with a document and a statement, get back diagnostics or
// rows.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/markql/markql"
	"github.com/markql/markql/internal/docio"
)

var allowedOrigins = []string{
	"http://localhost:5173",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type queryRequest struct {
	Document json.RawMessage `json:"document"`
	Source   string          `json:"source"`
}

func queryHandler(logger *zap.Logger, m *metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var body queryRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			m.QueryErrors.WithLabelValues("decode").Inc()
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(body.Document) == 0 {
			writeError(w, http.StatusBadRequest, "missing field: document")
			return
		}
		if body.Source == "" {
			writeError(w, http.StatusBadRequest, "missing field: source")
			return
		}

		doc, err := docio.ReadJSON(bytes.NewReader(body.Document))
		if err != nil {
			m.QueryErrors.WithLabelValues("load_document").Inc()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid document: %v", err))
			return
		}

		eng := markql.NewEngine(doc)

		start := time.Now()
		res, err := eng.Run(r.Context(), body.Source)
		if err != nil {
			m.QueryErrors.WithLabelValues("run").Inc()
			logger.Info("query failed", zap.Error(err), zap.String("source", body.Source))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		kind := "rows"
		if _, ok := res.(markql.AggregateResult); ok {
			kind = "aggregate"
		}
		m.QueriesTotal.WithLabelValues(kind).Inc()
		m.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		b, err := markql.MarshalResultJSON(res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	cfg := zap.NewProductionConfig()
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	m := newMetrics(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/query", queryHandler(logger, m))
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("markql server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, corsMiddleware(mux)); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

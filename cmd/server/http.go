package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"buildsim.ai/internal/protocol"
	"buildsim.ai/internal/sim/world"
	"buildsim.ai/internal/transport/ws"
)

type httpDeps struct {
	world  *world.World
	idx    runtimeIndex
	logger *log.Logger

	enableAdmin bool
	enablePprof bool
}

func newMux(d httpDeps) *http.ServeMux {
	w := d.world
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.Metrics(), d.idx)
	})

	if d.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			res, err := w.Submit(ctx, "admin", protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				Op:              protocol.OpState,
			})
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				State   any                `json:"state"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{State: res.Data, Metrics: w.Metrics()})
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			savedAt, err := w.RequestSave(ctx)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "saved_at_ms": savedAt, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "saved_at_ms": savedAt})
		})
		mux.HandleFunc("/admin/v1/audits", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if d.idx == nil {
				http.Error(rw, "index disabled", http.StatusNotFound)
				return
			}
			n, _ := strconv.Atoi(r.URL.Query().Get("n"))
			entries, err := d.idx.RecentAudits(r.Context(), n)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"audits": entries})
		})
	} else {
		d.logger.Printf("admin endpoints disabled (BUILDSIM_ENABLE_ADMIN_HTTP=false)")
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, d.logger).Handler())
	return mux
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, m world.WorldMetrics, idx runtimeIndex) {
	fmt.Fprintf(rw, "# HELP buildsim_inbox_depth Commands waiting for the world loop.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_inbox_depth gauge\n")
	fmt.Fprintf(rw, "buildsim_inbox_depth %d\n", m.InboxDepth)

	fmt.Fprintf(rw, "# HELP buildsim_inbox_capacity World loop inbox capacity.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_inbox_capacity gauge\n")
	fmt.Fprintf(rw, "buildsim_inbox_capacity %d\n", m.InboxCapacity)

	fmt.Fprintf(rw, "# HELP buildsim_commands_total Commands handled by the world loop.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_commands_total counter\n")
	fmt.Fprintf(rw, "buildsim_commands_total{result=%q} %d\n", "ok", m.Commands-m.Rejected)
	fmt.Fprintf(rw, "buildsim_commands_total{result=%q} %d\n", "rejected", m.Rejected)

	fmt.Fprintf(rw, "# HELP buildsim_saves_total Snapshots handed to the save writer.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_saves_total counter\n")
	fmt.Fprintf(rw, "buildsim_saves_total %d\n", m.Saves)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP buildsim_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "buildsim_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP buildsim_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE buildsim_index_dropped_total counter\n")
	fmt.Fprintf(rw, "buildsim_index_dropped_total{kind=%q} %d\n", "audit", s.DropAuditTotal)
	fmt.Fprintf(rw, "buildsim_index_dropped_total{kind=%q} %d\n", "save", s.DropSaveTotal)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

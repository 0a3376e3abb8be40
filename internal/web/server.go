package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fanctl"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fancurve"
)

// readbackPlaceholder is what a duty endpoint answers on read. The firmware
// exposes no query method for the current duty, so reads never touch hardware.
const readbackPlaceholder = "N/A (write-only)\n"

// maxWriteBody bounds a duty write; valid payloads are a handful of digits.
const maxWriteBody = 64

// FanController is what the endpoints need from the firmware controller.
type FanController interface {
	SetFanDuty(ctx context.Context, ch fanctl.Channel, duty int) error
	Snapshot() fanctl.Snapshot
}

// CurveStatus exposes the curve service snapshot; nil when the curve loop is
// not running.
type CurveStatus interface {
	Snapshot() fancurve.Snapshot
}

type statusPayload struct {
	Service string             `json:"service"`
	Fan     fanctl.Snapshot    `json:"fan"`
	Curve   *fancurve.Snapshot `json:"curve,omitempty"`
}

// Handler builds the HTTP surface: one status endpoint plus the two duty
// endpoints, fan1_duty (CPU) and fan2_duty (memory).
func Handler(ctl FanController, curve CurveStatus) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		payload := statusPayload{Service: "fevm-fanctl", Fan: ctl.Snapshot()}
		if curve != nil {
			snap := curve.Snapshot()
			payload.Curve = &snap
		}
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	// One endpoint implementation, instantiated per channel.
	mux.Handle("/api/fan/fan1_duty", dutyEndpoint(ctl, fanctl.ChannelCPU))
	mux.Handle("/api/fan/fan2_duty", dutyEndpoint(ctl, fanctl.ChannelMemory))

	return mux
}

func dutyEndpoint(ctl FanController, ch fanctl.Channel) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, readbackPlaceholder)

		case http.MethodPost, http.MethodPut:
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWriteBody+1))
			if err != nil {
				http.Error(w, "read body failed", http.StatusBadRequest)
				return
			}
			if len(body) > maxWriteBody {
				http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
				return
			}

			duty, err := fanctl.ParseDuty(string(body))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := ctl.SetFanDuty(r.Context(), ch, duty); err != nil {
				status := http.StatusBadGateway
				if errors.Is(err, fanctl.ErrNotBound) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, err.Error(), status)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, "{\"ok\":true,\"consumed\":%d}\n", len(body))

		default:
			w.Header().Set("Allow", "GET, POST, PUT")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// Serve runs the HTTP surface until the context is canceled.
func Serve(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: listening on %s", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

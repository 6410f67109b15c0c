package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aure/rumtrack/internal/db"
	"github.com/aure/rumtrack/internal/rum"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var servePort int
var requireAuth bool
var authTokens []string
var bindAll bool

func tokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if not required or no tokens configured
		if !requireAuth || len(authTokens) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		// Allow localhost requests without token
		host := r.Host
		if strings.HasPrefix(host, "localhost:") || strings.HasPrefix(host, "127.0.0.1:") || strings.HasPrefix(host, "[::1]:") {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
			if token == "" {
				http.Error(w, "Unauthorized: X-Auth-Token header or token query parameter required", http.StatusUnauthorized)
				return
			}
		}

		valid := false
		for _, t := range authTokens {
			if t == token {
				valid = true
				break
			}
		}

		if !valid {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bundles and rollups over a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDomain(); err != nil {
			return err
		}

		if requireAuth || bindAll {
			authTokens = cfg.AuthTokens
			if len(authTokens) == 0 {
				return fmt.Errorf("external access requires authentication; set RUMTRACK_AUTH_TOKENS or use 'rumtrack token generate --save'")
			}
			requireAuth = true
		}

		bindHost := "127.0.0.1"
		if bindAll {
			bindHost = "0.0.0.0"
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		loader, cleanup, err := newLoader(cmd.Context())
		if err != nil {
			return fmt.Errorf("creating loader: %w", err)
		}
		defer cleanup()

		handler := tokenAuth(newAPIMux(loader, database))

		addr := fmt.Sprintf("%s:%d", bindHost, servePort)
		fmt.Printf("Starting server at http://%s\n", addr)
		if requireAuth {
			fmt.Printf("Authentication enabled with %d token(s)\n", len(authTokens))
			fmt.Println("External requests require X-Auth-Token header or token query parameter")
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&requireAuth, "auth", false, "Require token authentication (reads from RUMTRACK_AUTH_TOKENS env or ~/.rumtrack/tokens)")
	serveCmd.Flags().BoolVar(&bindAll, "bind-all", false, "Bind to all interfaces (0.0.0.0) - requires auth token")
	rootCmd.AddCommand(serveCmd)
}

// requestError is reported to the client with status instead of 502.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

type jsonProvider func(r *http.Request) (any, error)

func newAPIMux(loader *rum.Loader, database *db.DB) *http.ServeMux {
	mux := http.NewServeMux()

	bucket := func(fetch func(context.Context, time.Time, rum.DateRange) (rum.Result, error)) jsonProvider {
		return func(r *http.Request) (any, error) {
			ts, err := requiredTime(r, "ts")
			if err != nil {
				return nil, err
			}
			rng, err := parseDateRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
			if err != nil {
				return nil, badRequest("%v", err)
			}
			return fetch(r.Context(), ts, rng)
		}
	}
	window := func(fetch func(context.Context, *time.Time) ([]rum.Result, error)) jsonProvider {
		return func(r *http.Request) (any, error) {
			end, err := optionalTime(r, "end")
			if err != nil {
				return nil, err
			}
			results, err := fetch(r.Context(), end)
			if err != nil {
				return nil, err
			}
			return maybeSummarize(r, loader.Domain(), results), nil
		}
	}

	mux.HandleFunc("GET /api/bundles/hour", makeJSONHandler(bucket(loader.FetchUTCHour)))
	mux.HandleFunc("GET /api/bundles/day", makeJSONHandler(bucket(loader.FetchUTCDay)))
	mux.HandleFunc("GET /api/bundles/month", makeJSONHandler(bucket(loader.FetchUTCMonth)))
	mux.HandleFunc("GET /api/bundles/last-week", makeJSONHandler(window(loader.FetchLastWeek)))
	mux.HandleFunc("GET /api/bundles/31days", makeJSONHandler(window(loader.FetchPrevious31Days)))
	mux.HandleFunc("GET /api/bundles/12months", makeJSONHandler(window(loader.FetchPrevious12Months)))
	mux.HandleFunc("GET /api/bundles/period", makeJSONHandler(func(r *http.Request) (any, error) {
		start, err := requiredTime(r, "start")
		if err != nil {
			return nil, err
		}
		end, err := optionalTime(r, "end")
		if err != nil {
			return nil, err
		}
		results, err := loader.FetchPeriod(r.Context(), start, end)
		if errors.Is(err, rum.ErrInvalidPeriod) {
			return nil, &requestError{status: http.StatusBadRequest, err: err}
		}
		if err != nil {
			return nil, err
		}
		return maybeSummarize(r, loader.Domain(), results), nil
	}))

	mux.HandleFunc("GET /api/rollups/daily", makeJSONHandler(func(r *http.Request) (any, error) {
		days, err := intParam(r, "days", 7)
		if err != nil {
			return nil, err
		}
		return database.GetDailyRollups(loader.Domain(), days)
	}))
	mux.HandleFunc("GET /api/rollups/weekly", makeJSONHandler(func(r *http.Request) (any, error) {
		weeks, err := intParam(r, "weeks", 4)
		if err != nil {
			return nil, err
		}
		return database.GetWeeklyRollups(loader.Domain(), weeks)
	}))

	return mux
}

func makeJSONHandler(provider jsonProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := provider(r)
		if err != nil {
			status := http.StatusBadGateway
			var reqErr *requestError
			if errors.As(err, &reqErr) {
				status = reqErr.status
			}
			logrus.WithError(err).WithField("path", r.URL.Path).Warn("api request failed")
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("writing response")
	}
}

func maybeSummarize(r *http.Request, domain string, results []rum.Result) any {
	if summary, _ := strconv.ParseBool(r.URL.Query().Get("summary")); summary {
		return summarizeResults(domain, results)
	}
	return results
}

func requiredTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, badRequest("missing %s parameter", name)
	}
	ts, err := rum.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, badRequest("%s: %v", name, err)
	}
	return ts, nil
}

func optionalTime(r *http.Request, name string) (*time.Time, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	ts, err := requiredTime(r, name)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return n, nil
}

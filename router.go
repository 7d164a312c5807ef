package upload // import "blitznote.com/src/png.upload"

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// NewRouter puts everything together:
//  GET  /        → the upload form
//  POST /upload  → Handler
//  GET  /<asset> → StaticHandler
// Anything else results in 404.
func NewRouter(config *Configuration) (*mux.Router, error) {
	uploadHandler, err := NewHandler(config)
	if err != nil {
		return nil, err
	}
	if config.StaticDir == "" {
		return nil, errors.New("the directory with static assets is missing")
	}
	logged := logRequests(config)

	r := mux.NewRouter()
	r.Use(logged)
	r.HandleFunc("/", ServeForm(config)).Methods(http.MethodGet)
	r.Handle("/upload", uploadHandler).Methods(http.MethodPost)
	r.PathPrefix("/").Handler(NewStaticHandler(config.StaticDir)).Methods(http.MethodGet)

	// mux would answer with 405 if only the method didn't match.
	r.NotFoundHandler = logged(http.HandlerFunc(serveNotFound))
	r.MethodNotAllowedHandler = logged(http.HandlerFunc(serveNotFound))
	return r, nil
}

// statusRecorder remembers the status code for the log.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

// logRequests writes one line per request to the configured Logger,
// and tags the response with a request ID.
func logRequests(config *Configuration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()
			w.Header().Set("X-Request-Id", requestID)

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			config.logf("%s %s %s → %d in %v", requestID, r.Method, r.URL.Path, rec.code, time.Since(start))
		})
	}
}

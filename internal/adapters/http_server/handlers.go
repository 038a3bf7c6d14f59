// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
)

type Handlers struct {
	Poll       *app.PollService
	CronSecret string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.With(BearerAuth(h.CronSecret)).Get("/jobs/poll-reviews", h.pollReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// pollReviews runs one poll cycle. Partial failure (expired tokens, one
// flaky location) is still a 200 with the errors array populated; only an
// infrastructure failure — the job could not even start its read — is a 500,
// and even then the partial report goes out for triage.
func (h *Handlers) pollReviews(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Poll.Run(r.Context())

	status := http.StatusOK
	if err != nil {
		log.Error().Err(err).Msg("poll run failed")
		rep.Errors = append(rep.Errors, err.Error())
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		log.Error().Err(err).Msg("write poll report failed")
	}
}

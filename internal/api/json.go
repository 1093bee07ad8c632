package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem is an RFC 7807 problem-details body. Transport-level failures
// (bad payloads, unknown routes, throttling) are reported this way;
// optimization errors travel classified inside the OptimizeResult instead.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemType derives a stable URI-ish identifier from the title, so
// clients can switch on it without parsing prose.
func problemType(title string) string {
	return "tripnav:problem:" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     problemType(title),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

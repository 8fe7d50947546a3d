package api

// Verdict represents the outcome of a naming policy evaluation.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
	VerdictLog   Verdict = "log"
)

// Admits reports whether the verdict lets a name through to the store.
func (v Verdict) Admits() bool {
	return v == VerdictAllow || v == VerdictLog
}

// CheckRequest is used by the CLI `check` command and the dry-run API.
type CheckRequest struct {
	Name string `json:"name"`
}

// CheckResponse is the result of a policy check.
type CheckResponse struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`
	Rule    string  `json:"rule,omitempty"`
	Message string  `json:"message,omitempty"`
}

// ErrorResponse is the JSON body returned by the API on failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Rule  string `json:"rule,omitempty"`
}

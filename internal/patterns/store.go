// Package patterns remembers which CSS selectors last worked for each
// domain, so the learned-pattern extractor can retry them on the next
// page from that domain.
package patterns

import (
	"time"
)

// Entry is the learned selector map for one domain.
type Entry struct {
	Domain       string            `json:"domain"`
	Fields       map[string]string `json:"fields"`
	LastSuccess  time.Time         `json:"last_success"`
	SuccessCount int               `json:"success_count"`
}

func (e *Entry) clone() *Entry {
	fields := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return &Entry{
		Domain:       e.Domain,
		Fields:       fields,
		LastSuccess:  e.LastSuccess,
		SuccessCount: e.SuccessCount,
	}
}

// Store is the pattern persistence contract. RecordSuccess must be safe
// to call from the extraction hot path: persistence is best-effort and
// must never block or fail the caller.
type Store interface {
	Get(domain string) (*Entry, bool)
	RecordSuccess(domain string, fields map[string]string)
	Close() error
}

// sameUTCDay implements the once-per-day success throttle.
func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

package httptransport

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
)

// carerStore is the demonstration record store behind /api/carers. The
// pipeline has already sealed protected fields by the time a record arrives
// here, so the store only ever holds envelopes; the outbound stage decides
// between masking and decryption per caller.
type carerStore struct {
	mu      sync.RWMutex
	records map[string]map[string]any
}

func newCarerStore() *carerStore {
	return &carerStore{records: make(map[string]map[string]any)}
}

func (s *carerStore) put(record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record["id"].(string)] = record
}

func (s *carerStore) get(id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

func (s *carerStore) list() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["createdAt"].(string) < out[j]["createdAt"].(string)
	})
	return out
}

func (h *Handler) handleCreateCarer(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid record"))
		return
	}

	record["id"] = uuid.New().String()
	record["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	h.carers.put(record)

	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGetCarer(w http.ResponseWriter, r *http.Request) {
	record, ok := h.carers.get(chi.URLParam(r, "id"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "carer not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListCarers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"carers":  h.carers.list(),
	})
}

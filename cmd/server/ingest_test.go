package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptdelve.gg/internal/feed"
	"cryptdelve.gg/internal/fog"
	"cryptdelve.gg/internal/persistence/kv"
	"cryptdelve.gg/internal/protocol"
	"cryptdelve.gg/internal/transport/ws"
)

func newTestIngest(t *testing.T) *ingestHandler {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	fogStore := fog.New(kv.NewMem(0), fog.Options{}, logger)
	h, err := newIngestHandler(feed.NewDecoder(500, logger), ws.NewServer(fogStore, logger), nil, "../../schemas", logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func TestIngest_DecodesValidPayload(t *testing.T) {
	h := newTestIngest(t)
	body := `{
	  "reference_block": 1000,
	  "reference_timestamp_ms": 500000,
	  "batches": [{
	    "blockNumber": 998,
	    "logs": [{"logType":0,"index":1,"mainParticipantIndex":1,"otherParticipantIndex":0,"hit":true,"damageDone":4}],
	    "chatStrings": []
	  }],
	  "combatants": [{"id":"0xhero","name":"Hero","index":1}],
	  "noncombatants": []
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp["events"] != 1 || resp["chats"] != 0 {
		t.Fatalf("resp=%v", resp)
	}
}

func TestIngest_RejectsSchemaViolations(t *testing.T) {
	h := newTestIngest(t)
	// blockNumber must be an integer.
	body := `{
	  "reference_block": 1000,
	  "reference_timestamp_ms": 500000,
	  "batches": [{"blockNumber": "nope", "logs": []}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var e protocol.ErrorMsg
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if e.Code != protocol.ErrSchemaInvalid {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestIngest_RejectsNonPost(t *testing.T) {
	h := newTestIngest(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestIngest_RejectsInvalidJSON(t *testing.T) {
	h := newTestIngest(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

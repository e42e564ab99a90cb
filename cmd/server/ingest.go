package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cryptdelve.gg/internal/feed"
	"cryptdelve.gg/internal/persistence/capture"
	"cryptdelve.gg/internal/protocol"
	"cryptdelve.gg/internal/transport/ws"
)

// ingestHandler accepts one poll's worth of raw batches from the chain
// poller, validates the payload against the ingest schema, decodes it and
// fans the result out to connected UI sessions.
type ingestHandler struct {
	decoder *feed.Decoder
	ws      *ws.Server
	capture *capture.Writer
	schema  *jsonschema.Schema
	log     *log.Logger
}

func newIngestHandler(decoder *feed.Decoder, wsServer *ws.Server, capw *capture.Writer, schemaDir string, logger *log.Logger) (*ingestHandler, error) {
	h := &ingestHandler{decoder: decoder, ws: wsServer, capture: capw, log: logger}
	if schemaDir != "" {
		s, err := jsonschema.Compile(filepath.Join(schemaDir, "ingest.schema.json"))
		if err != nil {
			return nil, fmt.Errorf("compile ingest schema: %w", err)
		}
		h.schema = s
	}
	return h, nil
}

func (h *ingestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "POST only")
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.fail(w, http.StatusBadRequest, protocol.ErrBadBatch, "invalid JSON")
		return
	}

	if h.schema != nil {
		var v any
		_ = json.Unmarshal(raw, &v)
		if err := h.schema.Validate(v); err != nil {
			h.fail(w, http.StatusUnprocessableEntity, protocol.ErrSchemaInvalid, err.Error())
			return
		}
	}

	var req protocol.IngestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.fail(w, http.StatusBadRequest, protocol.ErrBadBatch, "invalid ingest payload")
		return
	}

	if h.capture != nil {
		for _, b := range req.Batches {
			if err := h.capture.Append(b); err != nil {
				h.log.Printf("capture append: %v", err)
				break
			}
		}
	}

	roster := feed.Roster{Combatants: req.Combatants, NonCombatants: req.NonCombatants}
	events, chats := h.decoder.Decode(req.Batches, roster, req.ReferenceBlock, req.ReferenceTimestampMs, "")
	h.ws.Broadcast(events, chats)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"events": len(events),
		"chats":  len(chats),
	})
}

func (h *ingestHandler) fail(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

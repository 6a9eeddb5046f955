package httpsync

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kazade/syncdb/internal/authn"
	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/logging"
	"github.com/kazade/syncdb/internal/monitoring"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/synctarget"
)

// Server dispatches BASE/<db>/sync-from/<source_uid> requests against a
// set of named local databases. Path parsing follows the teacher-adjacent
// eniz1806-VaultS3 convention: strings.Trim + strings.Split, no
// third-party router.
type Server struct {
	databases map[string]*store.Database
	auth      authn.Authenticator
	metrics   *monitoring.Metrics
	logger    *logging.Logger
}

// NewServer returns a Server serving databases, authenticating requests
// with auth (pass authn.AllowAll{} to disable authentication).
func NewServer(databases map[string]*store.Database, auth authn.Authenticator) *Server {
	return &Server{databases: databases, auth: auth}
}

// WithMetrics attaches a Metrics instance that handlePost updates for
// every sync_exchange served. Returns s for chaining.
func (s *Server) WithMetrics(m *monitoring.Metrics) *Server {
	s.metrics = m
	return s
}

// WithLogger attaches a Logger used to record per-request failures.
// Returns s for chaining.
func (s *Server) WithLogger(l *logging.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.ActiveConnections.Inc()
		defer s.metrics.ActiveConnections.Dec()
	}
	if s.auth != nil {
		if _, err := s.auth.Authenticate(r); err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Warn("rejected unauthenticated sync request")
			}
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
	}

	segs := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segs) != 3 || segs[1] != "sync-from" {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}
	dbName, sourceUID := segs[0], segs[2]
	if !document.ValidDocID(sourceUID) {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}
	db, ok := s.databases[dbName]
	if !ok {
		writeError(w, http.StatusBadRequest, "bad request", "unknown database")
		return
	}
	target := synctarget.NewDatabaseTarget(db)

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, target, sourceUID)
	case http.MethodPut:
		s.handlePut(w, r, target, sourceUID)
	case http.MethodPost:
		s.handlePost(w, r, target, sourceUID)
	default:
		writeError(w, http.StatusBadRequest, "bad request", "")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, target synctarget.Target, sourceUID string) {
	tgtUID, tgtGen, srcGen, srcTxID, err := target.GetSyncInfo(sourceUID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncInfoResponse{
		TargetReplicaUID:        tgtUID,
		TargetReplicaGeneration: tgtGen,
		SourceReplicaGeneration: srcGen,
		SourceTransactionID:     srcTxID,
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, target synctarget.Target, sourceUID string) {
	var body recordSyncInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}
	if err := target.RecordSyncInfo(sourceUID, body.Generation, body.TransactionID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, target synctarget.Target, sourceUID string) {
	sr := NewStreamReader(r.Body)
	if err := sr.Open(); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}
	if !sr.More() {
		writeError(w, http.StatusBadRequest, "bad request", "missing stream header")
		return
	}
	var header streamHeader
	if err := sr.Next(&header); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}
	var docs []streamDocRecord
	for sr.More() {
		var rec streamDocRecord
		if err := sr.Next(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "bad request", "")
			return
		}
		docs = append(docs, rec)
	}
	if err := sr.Close(); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "")
		return
	}

	recs := make([]synctarget.DocRecord, len(docs))
	for i, d := range docs {
		recs[i] = d.toRecord()
	}

	start := time.Now()
	var outbound []synctarget.DocRecord
	newGen, newTxID, err := target.SyncExchange(recs, sourceUID, header.LastKnownGeneration, func(rec synctarget.DocRecord) error {
		outbound = append(outbound, rec)
		return nil
	})
	if s.metrics != nil {
		s.metrics.SyncExchanges.Inc()
		s.metrics.SyncExchangeDur.Observe(time.Since(start).Seconds())
		s.metrics.DocsReceived.Add(float64(len(recs)))
		s.metrics.DocsSent.Add(float64(len(outbound)))
	}

	w.Header().Set("Content-Type", "application/json")
	sw := NewStreamWriter(w)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SyncExchangeErrors.Inc()
		}
		if s.logger != nil {
			s.logger.WithPeer(sourceUID).WithError(err).Error("sync_exchange failed")
		}
		kind, _ := document.KindOf(err)
		msg := err.Error()
		if kind == document.KindUnavailable {
			msg = "unavailable"
		}
		sw.WriteErrorAndClose(msg)
		return
	}
	sw.Write(responseHeader{NewGeneration: newGen, NewTransactionID: newTxID})
	for _, rec := range outbound {
		sw.Write(fromRecord(rec))
	}
	sw.Close()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errStr, message string) {
	body := map[string]string{"error": errStr}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

// writeStoreError maps a document.Error's Kind to the §6 status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	kind, ok := document.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	switch kind {
	case document.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case document.KindRevisionConflict:
		writeError(w, http.StatusConflict, "revision conflict", "")
	case document.KindUnavailable:
		writeError(w, http.StatusServiceUnavailable, "unavailable", "")
	case document.KindInvalidDocID, document.KindInvalidJSON, document.KindInvalidGeneration,
		document.KindInvalidTransactionID, document.KindInvalidGlobbing, document.KindInvalidValueForIndex:
		writeError(w, http.StatusBadRequest, "bad request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

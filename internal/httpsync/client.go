package httpsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kazade/syncdb/internal/document"
	"github.com/kazade/syncdb/internal/synctarget"
)

// Client is a synctarget.Target backed by a remote syncdbd server,
// letting syncclient.Synchronizer drive a sync round against a peer
// process exactly as it would against a local *store.Database.
type Client struct {
	baseURL    string
	db         string
	httpClient *http.Client
	token      string
}

// NewClient returns a Client for the database named db on the server at
// baseURL (no trailing slash). token, if non-empty, is sent as a Bearer
// Authorization header on every request.
func NewClient(baseURL, db, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, db: db, httpClient: httpClient, token: token}
}

func (c *Client) url(sourceUID string) string {
	return fmt.Sprintf("%s/%s/sync-from/%s", c.baseURL, c.db, sourceUID)
}

func (c *Client) newRequest(method, url string, body *bytes.Buffer) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, body)
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// GetSyncInfo implements synctarget.Target.
func (c *Client) GetSyncInfo(sourceUID string) (string, int64, int64, string, error) {
	req, err := c.newRequest(http.MethodGet, c.url(sourceUID), nil)
	if err != nil {
		return "", 0, 0, "", document.Wrap(document.KindBrokenSyncStream, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, "", document.Newf(document.KindUnavailable, "sync target unreachable: %v", err)
	}
	defer resp.Body.Close()
	if err := statusToError(resp.StatusCode); err != nil {
		return "", 0, 0, "", err
	}
	var body syncInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, 0, "", document.Wrap(document.KindBrokenSyncStream, err)
	}
	return body.TargetReplicaUID, body.TargetReplicaGeneration, body.SourceReplicaGeneration, body.SourceTransactionID, nil
}

// RecordSyncInfo implements synctarget.Target.
func (c *Client) RecordSyncInfo(sourceUID string, sourceGen int64, sourceTransID string) error {
	b, err := json.Marshal(recordSyncInfoRequest{Generation: sourceGen, TransactionID: sourceTransID})
	if err != nil {
		return err
	}
	req, err := c.newRequest(http.MethodPut, c.url(sourceUID), bytes.NewBuffer(b))
	if err != nil {
		return document.Wrap(document.KindBrokenSyncStream, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return document.Newf(document.KindUnavailable, "sync target unreachable: %v", err)
	}
	defer resp.Body.Close()
	return statusToError(resp.StatusCode)
}

// SyncExchange implements synctarget.Target.
func (c *Client) SyncExchange(docs []synctarget.DocRecord, sourceUID string, lastKnownGeneration int64, returnDoc func(synctarget.DocRecord) error) (int64, string, error) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)
	sw.Write(streamHeader{LastKnownGeneration: lastKnownGeneration})
	for _, d := range docs {
		sw.Write(fromRecord(d))
	}
	if err := sw.Close(); err != nil {
		return 0, "", document.Wrap(document.KindBrokenSyncStream, err)
	}

	req, err := c.newRequest(http.MethodPost, c.url(sourceUID), &buf)
	if err != nil {
		return 0, "", document.Wrap(document.KindBrokenSyncStream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", document.Newf(document.KindUnavailable, "sync target unreachable: %v", err)
	}
	defer resp.Body.Close()
	if err := statusToError(resp.StatusCode); err != nil {
		return 0, "", err
	}

	sr := NewStreamReader(resp.Body)
	if err := sr.Open(); err != nil {
		return 0, "", err
	}
	if !sr.More() {
		return 0, "", document.Newf(document.KindBrokenSyncStream, "empty response stream")
	}
	var header responseHeader
	if err := sr.Next(&header); err != nil {
		return 0, "", err
	}
	for sr.More() {
		var rec streamDocRecord
		if err := sr.Next(&rec); err != nil {
			return 0, "", err
		}
		if err := returnDoc(rec.toRecord()); err != nil {
			return 0, "", err
		}
	}
	if err := sr.Close(); err != nil {
		return 0, "", err
	}
	return header.NewGeneration, header.NewTransactionID, nil
}

func statusToError(status int) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return document.Newf(document.KindUnauthorized, "sync target rejected credentials")
	case http.StatusServiceUnavailable:
		return document.Newf(document.KindUnavailable, "sync target unavailable")
	case http.StatusConflict:
		return document.Newf(document.KindRevisionConflict, "revision conflict")
	case http.StatusBadRequest:
		return document.Newf(document.KindBrokenSyncStream, "sync target rejected the request")
	default:
		return document.Newf(document.KindBrokenSyncStream, "unexpected status %d", status)
	}
}

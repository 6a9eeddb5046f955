package httpsync

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/kazade/syncdb/internal/authn"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/syncclient"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestClientServerSyncRoundTrip(t *testing.T) {
	a := store.New("A", store.NewMemBackend())
	b := store.New("B", store.NewMemBackend())

	d, err := a.CreateDoc(raw(`{"x":1}`), "doc1")
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(map[string]*store.Database{"mydb": b}, authn.AllowAll{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(ts.URL, "mydb", "", nil)
	if _, err := syncclient.New(a, client).Sync(); err != nil {
		t.Fatal(err)
	}

	got, err := b.GetDoc("doc1", false)
	if err != nil || got == nil || got.Rev != d.Rev {
		t.Fatalf("expected doc1 synced to B over HTTP, got %+v err=%v", got, err)
	}
}

func TestServerRejectsUnauthorized(t *testing.T) {
	b := store.New("B", store.NewMemBackend())
	authFn := authn.NewJWTAuthenticator("secret", 0)
	srv := NewServer(map[string]*store.Database{"mydb": b}, authFn)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(ts.URL, "mydb", "", nil)
	_, _, _, _, err := client.GetSyncInfo("A")
	if err == nil {
		t.Fatal("expected unauthorized error without a token")
	}
}

func TestServerBadURLShape(t *testing.T) {
	b := store.New("B", store.NewMemBackend())
	srv := NewServer(map[string]*store.Database{"mydb": b}, authn.AllowAll{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/mydb/not-sync-from/A")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("got status %d", resp.StatusCode)
	}
}

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newProfileClient(t *testing.T, httpURL, token string) *Client {
	t.Helper()
	client, err := NewClient(Options{
		URL:     "ws://127.0.0.1:1/unused",
		HTTPURL: httpURL,
		Token:   token,
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestLookupProfileReadsDisplayName(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"5511999@c.us","display_name":"Maria Souza"}`))
	}))
	defer server.Close()

	client := newProfileClient(t, server.URL, "secret")
	profile, err := client.LookupProfile(context.Background(), "5511999@c.us")
	if err != nil {
		t.Fatalf("LookupProfile() error = %v", err)
	}
	if profile.DisplayName != "Maria Souza" {
		t.Fatalf("DisplayName = %q, want Maria Souza", profile.DisplayName)
	}
	if gotPath != "/contacts/5511999@c.us" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestLookupProfileFallsBackToPushName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x@c.us","push_name":"Maria"}`))
	}))
	defer server.Close()

	client := newProfileClient(t, server.URL, "")
	profile, err := client.LookupProfile(context.Background(), "x@c.us")
	if err != nil {
		t.Fatalf("LookupProfile() error = %v", err)
	}
	if profile.DisplayName != "Maria" {
		t.Fatalf("DisplayName = %q, want Maria", profile.DisplayName)
	}
}

func TestLookupProfileErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newProfileClient(t, server.URL, "")
	if _, err := client.LookupProfile(context.Background(), "gone@c.us"); err == nil {
		t.Fatalf("LookupProfile() for missing contact should fail")
	}
	if _, err := client.LookupProfile(context.Background(), "   "); err == nil {
		t.Fatalf("LookupProfile() with blank id should fail")
	}
}

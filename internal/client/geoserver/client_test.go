package geoserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeGeoServer tracks which REST resources exist and which requests arrive.
type fakeGeoServer struct {
	mu       sync.Mutex
	existing map[string]bool
	requests []string
}

func newFakeGeoServer() *fakeGeoServer {
	return &fakeGeoServer{existing: map[string]bool{}}
}

func (f *fakeGeoServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		key := r.Method + " " + r.URL.Path
		f.requests = append(f.requests, key)
		switch r.Method {
		case http.MethodGet:
			if f.existing[r.URL.Path] {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeGeoServer) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "stl311", "stl311_db", "admin", "secret")
}

func TestPublishCreatesChainOnFirstUse(t *testing.T) {
	fake := newFakeGeoServer()
	client := newTestClient(t, fake)

	if err := client.Publish(context.Background(), "service_requests"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	want := []string{
		"POST /rest/workspaces",
		"POST /rest/workspaces/stl311/datastores",
		"POST /rest/workspaces/stl311/datastores/stl311_db/featuretypes",
	}
	for _, req := range want {
		if !contains(fake.requests, req) {
			t.Fatalf("expected request %q, got %v", req, fake.requests)
		}
	}
}

func TestPublishRecalculatesExistingLayer(t *testing.T) {
	fake := newFakeGeoServer()
	fake.existing["/rest/workspaces/stl311"] = true
	fake.existing["/rest/workspaces/stl311/datastores/stl311_db"] = true
	fake.existing["/rest/workspaces/stl311/datastores/stl311_db/featuretypes/service_requests"] = true
	client := newTestClient(t, fake)

	if err := client.Publish(context.Background(), "service_requests"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if !contains(fake.requests, "PUT /rest/workspaces/stl311/datastores/stl311_db/featuretypes/service_requests") {
		t.Fatalf("expected feature type refresh, got %v", fake.requests)
	}
	for _, req := range fake.requests {
		if req == "POST /rest/workspaces" {
			t.Fatalf("existing workspace must not be recreated")
		}
	}
}

func TestPublishRequiresLayerName(t *testing.T) {
	client := newTestClient(t, newFakeGeoServer())
	if err := client.Publish(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty layer")
	}
}

func TestPublishSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.Client(), srv.URL, "stl311", "stl311_db", "admin", "secret")

	err := client.Publish(context.Background(), "service_requests")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

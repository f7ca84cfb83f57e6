package simpleapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/simpleapi"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (simpleapi.Client, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := simpleapi.New(
		simpleapi.WithHTTPClient(srv.Client()),
		simpleapi.WithBaseURL(srv.URL),
	)

	return client, srv.URL
}

func TestFetchProject(t *testing.T) {
	page := simpleapi.ProjectPage{
		Name: "six",
		Files: []simpleapi.File{
			{Filename: "six-1.17.0-py2.py3-none-any.whl", URL: "https://files.example/six-1.17.0-py2.py3-none-any.whl"},
		},
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/six/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if got := r.Header.Get("Accept"); got != "application/vnd.pypi.simple.v1+json" {
			t.Errorf("unexpected Accept header: %q", got)
		}

		_ = json.NewEncoder(w).Encode(page)
	})

	got, err := client.FetchProject(context.Background(), "six")
	if err != nil {
		t.Fatalf("FetchProject: %v", err)
	}

	if len(got.Files) != 1 || got.Files[0].Filename != page.Files[0].Filename {
		t.Errorf("FetchProject() = %+v, want %+v", got, page)
	}
}

func TestFetchProjectNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	if _, err := client.FetchProject(context.Background(), "missing"); err == nil {
		t.Error("expected an error for a 404 response")
	}
}

func TestFetchMetadataPrefersPEP658(t *testing.T) {
	client, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pkg-1.0-py3-none-any.whl.metadata" {
			t.Errorf("expected the.metadata path to be requested, got %s", r.URL.Path)
		}

		_, _ = w.Write([]byte("Name: pkg\nVersion: 1.0\n"))
	})

	f := simpleapi.File{
		Filename:         "pkg-1.0-py3-none-any.whl",
		URL:              base + "/pkg-1.0-py3-none-any.whl",
		DistInfoMetadata: simpleapi.MetadataFlag{Available: true},
	}

	body, err := client.FetchMetadata(context.Background(), f)
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}

	if string(body) != "Name: pkg\nVersion: 1.0\n" {
		t.Errorf("unexpected metadata body: %q", body)
	}
}

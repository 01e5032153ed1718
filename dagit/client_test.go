package dagit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"did":"did:key:z6Mk1"}`))
	})
	mux.HandleFunc("POST /api/posts", func(w http.ResponseWriter, r *http.Request) {
		var body postRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Content != "Hello from memex!" || len(body.Refs) != 1 || body.Refs[0] != "bafyparent" {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"cid":"bafynew","content":"Hello from memex!"}`))
	})
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`[{"cid":"bafy1"},{"cid":"bafy2"}]`))
	})
	mux.HandleFunc("GET /api/posts/{cid}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("cid") == "missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"cid":"` + r.PathValue("cid") + `"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	me, err := c.Whoami(ctx)
	if err != nil {
		t.Fatalf("Whoami() error = %v", err)
	}
	if me.DID() != "did:key:z6Mk1" {
		t.Errorf("DID() = %q", me.DID())
	}

	post, err := c.Post(ctx, "Hello from memex!", []string{"bafyparent"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if post["cid"] != "bafynew" {
		t.Errorf("post = %v", post)
	}

	feed, err := c.Feed(ctx, 3)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed) != 2 {
		t.Errorf("len(feed) = %d, want 2", len(feed))
	}

	one, err := c.Read(ctx, "bafy1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if one["cid"] != "bafy1" {
		t.Errorf("read = %v", one)
	}

	_, err = c.Read(ctx, "missing")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Read(missing) error = %v, want status 404", err)
	}
}

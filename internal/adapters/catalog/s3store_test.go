package catalog_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pokepack/internal/adapters/catalog"
)

// fakeS3 serves path-style object requests from a map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.URL.Path
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func TestS3Store(t *testing.T) {
	Convey("Given an S3 store against an S3-compatible endpoint", t, func() {
		ctx := context.Background()
		fake := &fakeS3{objects: map[string][]byte{}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		store, err := catalog.NewS3Store(ctx, catalog.S3Config{
			Bucket:    "snapshots",
			Prefix:    "/pokepack/",
			Region:    "us-east-1",
			Endpoint:  srv.URL,
			AccessKey: "test",
			SecretKey: "test",
		})
		So(err, ShouldBeNil)

		Convey("Objects round trip under the prefix", func() {
			So(store.Save(ctx, "sv1-cards-cache.json", []byte(`[{"id":"sv1-1"}]`)), ShouldBeNil)
			So(fake.has("/snapshots/pokepack/sv1-cards-cache.json"), ShouldBeTrue)

			data, err := store.Load(ctx, "sv1-cards-cache.json")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `[{"id":"sv1-1"}]`)

			So(store.Delete(ctx, "sv1-cards-cache.json"), ShouldBeNil)
			_, err = store.Load(ctx, "sv1-cards-cache.json")
			So(errors.Is(err, catalog.ErrSnapshotNotFound), ShouldBeTrue)
		})

		Convey("A bucket is required", func() {
			_, err := catalog.NewS3Store(ctx, catalog.S3Config{Region: "us-east-1"})
			So(err, ShouldNotBeNil)
		})
	})
}

package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadFileID(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products.csv" {
			handlerCalled = true
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("productcode\nA\n"))
		} else {
			t.Fatal(fmt.Sprintf("invalid request to test server: %s %s", r.Method, r.URL.Path))
		}
	}))
	defer ts.Close()

	getFileDirectUrl := func(fileId string) (string, error) {
		return fmt.Sprintf("%s/%s.csv", ts.URL, fileId), nil
	}

	bytes, err := downloadFileID(context.Background(), getFileDirectUrl, "products")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, []byte("productcode\nA\n"), bytes)
	assert.True(t, handlerCalled)
}

func TestDownloadFileID_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := downloadFileID(context.Background(), func(string) (string, error) {
		return ts.URL + "/missing", nil
	}, "missing")

	assert.Error(t, err)
}

func TestDownloadFileID_URLResolutionError(t *testing.T) {
	_, err := downloadFileID(context.Background(), func(string) (string, error) {
		return "", fmt.Errorf("no such file")
	}, "x")

	assert.ErrorContains(t, err, "failed to get file URL")
}

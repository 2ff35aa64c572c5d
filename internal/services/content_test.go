package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ackportal/backend/internal/models"
)

func TestDetectSourcePrecedence(t *testing.T) {
	assert.Equal(t, SourceLibrary, DetectSource(&models.Document{
		LibraryContainer: "policies",
		LibraryItem:      "travel.pdf",
		URL:              "https://example.com/travel.pdf",
		LocalPath:        "/tmp/travel.pdf",
	}), "library identifiers win over URL and local path")

	assert.Equal(t, SourceURL, DetectSource(&models.Document{
		URL:       "https://example.com/travel.pdf",
		LocalPath: "/tmp/travel.pdf",
	}))

	assert.Equal(t, SourceLocal, DetectSource(&models.Document{
		LocalPath: "/tmp/travel.pdf",
	}))

	assert.Equal(t, SourceUnknown, DetectSource(&models.Document{}))

	// A container without an item is not a valid library locator
	assert.Equal(t, SourceUnknown, DetectSource(&models.Document{
		LibraryContainer: "policies",
	}))
}

func TestContentSourceString(t *testing.T) {
	assert.Equal(t, "library", SourceLibrary.String())
	assert.Equal(t, "url", SourceURL.String())
	assert.Equal(t, "local", SourceLocal.String())
	assert.Equal(t, "unknown", SourceUnknown.String())
}

func TestContentTypeFor(t *testing.T) {
	stored := &models.Document{ContentType: "application/pdf"}
	assert.Equal(t, "application/pdf", contentTypeFor(stored, "whatever.bin"))

	blank := &models.Document{}
	assert.Equal(t, "application/pdf", contentTypeFor(blank, "file.PDF"))
	assert.Equal(t, "text/html", contentTypeFor(blank, "page.htm"))
	assert.Equal(t, "text/csv", contentTypeFor(blank, "roster.csv"))
	assert.Equal(t, "image/jpeg", contentTypeFor(blank, "photo.jpeg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor(blank, "mystery.xyz"))
}

func TestFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf; charset=binary")
		w.Write([]byte("pdf bytes"))
	}))
	defer server.Close()

	r := &ContentResolver{http: &http.Client{Timeout: 5 * time.Second}}
	doc := &models.Document{URL: server.URL + "/doc.pdf"}

	data, contentType, err := r.Fetch(doc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
	assert.Equal(t, "application/pdf", contentType, "charset parameter stripped")
}

func TestFetchURLOctetStreamFallsBackToExtension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("x"))
	}))
	defer server.Close()

	r := &ContentResolver{http: &http.Client{Timeout: 5 * time.Second}}
	doc := &models.Document{URL: server.URL + "/report.csv"}

	_, contentType, err := r.Fetch(doc)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
}

func TestFetchURLNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := &ContentResolver{http: &http.Client{Timeout: 5 * time.Second}}
	doc := &models.Document{URL: server.URL + "/missing.pdf"}

	_, _, err := r.Fetch(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetchNoSource(t *testing.T) {
	r := &ContentResolver{http: &http.Client{Timeout: 5 * time.Second}}

	_, _, err := r.Fetch(&models.Document{})
	assert.ErrorIs(t, err, ErrNoContentSource)
}

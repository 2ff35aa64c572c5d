package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ackportal/backend/internal/models"
	"github.com/jlaffaye/ftp"
)

// ContentSource identifies where a document's bytes live. Exactly one
// variant is selected by inspecting which locator fields are populated.
type ContentSource int

const (
	SourceUnknown ContentSource = iota
	SourceLibrary               // remote document library (container + item)
	SourceURL                   // direct URL, fetched through the proxy client
	SourceLocal                 // file on the backend host
)

// String returns the variant name for logging
func (s ContentSource) String() string {
	switch s {
	case SourceLibrary:
		return "library"
	case SourceURL:
		return "url"
	case SourceLocal:
		return "local"
	}
	return "unknown"
}

// DetectSource selects the content source variant for a document. Structured
// library identifiers win over a raw URL; the URL is the fallback when they
// are absent.
func DetectSource(doc *models.Document) ContentSource {
	switch {
	case doc.LibraryContainer != "" && doc.LibraryItem != "":
		return SourceLibrary
	case doc.URL != "":
		return SourceURL
	case doc.LocalPath != "":
		return SourceLocal
	}
	return SourceUnknown
}

var (
	// ErrLibraryNotConfigured means the remote document library credentials
	// are missing; distinct from a fetch failure
	ErrLibraryNotConfigured = errors.New("document library not configured")

	// ErrNoContentSource means no locator field is populated on the document
	ErrNoContentSource = errors.New("document has no content source")
)

// LibraryClient fetches document bytes from the remote document library
type LibraryClient interface {
	Fetch(container, item string) ([]byte, error)
}

// ftpLibrary talks to the FTP-backed document library configured in settings
type ftpLibrary struct{}

type libraryConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

func loadLibraryConfig() (*libraryConfig, error) {
	host := getSettingString("library_host", "")
	if host == "" {
		return nil, ErrLibraryNotConfigured
	}
	return &libraryConfig{
		Host:     host,
		Port:     getSettingInt("library_port", 21),
		Username: getSettingString("library_username", ""),
		Password: getSettingString("library_password", ""),
	}, nil
}

func (ftpLibrary) Fetch(container, item string) ([]byte, error) {
	cfg, err := loadLibraryConfig()
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("library dial failed: %w", err)
	}
	defer conn.Quit()

	if cfg.Username != "" {
		if err := conn.Login(cfg.Username, cfg.Password); err != nil {
			return nil, fmt.Errorf("library login failed: %w", err)
		}
	}

	if container != "" {
		if err := conn.ChangeDir(container); err != nil {
			return nil, fmt.Errorf("library container %q not found: %w", container, err)
		}
	}

	r, err := conn.Retr(item)
	if err != nil {
		return nil, fmt.Errorf("library item %q not found: %w", item, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

// ContentResolver resolves document bytes from whichever source variant the
// document uses
type ContentResolver struct {
	http    *http.Client
	library LibraryClient
}

// NewContentResolver creates a resolver with the FTP-backed library client
func NewContentResolver() *ContentResolver {
	return &ContentResolver{
		http:    &http.Client{Timeout: 2 * time.Minute},
		library: ftpLibrary{},
	}
}

// Fetch returns the raw bytes and content type for a document
func (r *ContentResolver) Fetch(doc *models.Document) ([]byte, string, error) {
	source := DetectSource(doc)

	switch source {
	case SourceLibrary:
		data, err := r.library.Fetch(doc.LibraryContainer, doc.LibraryItem)
		if err != nil {
			return nil, "", err
		}
		return data, contentTypeFor(doc, doc.LibraryItem), nil

	case SourceURL:
		return r.fetchURL(doc)

	case SourceLocal:
		data, err := os.ReadFile(doc.LocalPath)
		if err != nil {
			return nil, "", err
		}
		return data, contentTypeFor(doc, doc.LocalPath), nil
	}

	return nil, "", ErrNoContentSource
}

// fetchURL downloads a document through the proxy HTTP client, normalizing
// the content type so origin download-blocking headers never leak through
func (r *ContentResolver) fetchURL(doc *models.Document) ([]byte, string, error) {
	resp, err := r.http.Get(doc.URL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: HTTP %d", doc.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(doc, doc.URL)
	}

	return data, contentType, nil
}

// contentTypeFor picks the document's stored content type, falling back to
// the file extension
func contentTypeFor(doc *models.Document, name string) string {
	if doc.ContentType != "" {
		return doc.ContentType
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	log.Printf("Content: no content type for %q, defaulting to octet-stream", name)
	return "application/octet-stream"
}

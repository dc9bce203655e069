package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/internal/metrics"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeProvider struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeProvider) ExtractText(ctx context.Context, config providers.Config, img providers.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeProvider) Name() string                                { return "fake" }
func (f *fakeProvider) ValidateConfig(config providers.Config) error { return nil }

func (f *fakeProvider) set(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func newTestServer(t *testing.T, engine *fakeProvider, cfg Config) *httptest.Server {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	pipeline := ocr.NewPipeline(engine, providers.Config{}, ocr.WithRecorder(m))
	s, err := New(pipeline, m, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

func (c *client) upload(path, field, filename string, data []byte) (*http.Response, string) {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		c.t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()

	resp, err := c.http.Post(c.base+path, mw.FormDataContentType(), &body)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(c.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHome_Empty(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{}, Config{})
	c := newClient(t, ts)

	resp, body := c.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"Online-OCR", "#87CEEB", "Hindi-English OCR Application", "Perform OCR"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}
	if strings.Contains(body, "Enter keyword to search") {
		t.Error("keyword search shown before any extraction")
	}
}

func TestOCRAndKeywordSearch(t *testing.T) {
	engine := &fakeProvider{text: "नमस्ते world\nsecond line"}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	resp, body := c.upload("/ocr", "file", "scan.png", testPNG(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	for _, want := range []string{"Extracted Text", "नमस्ते world", "Number of words: 4", "/history/1/image", "/export/json", "Enter keyword to search"} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}

	_, body = c.get("/?keyword=WORLD")
	if !strings.Contains(body, `Keyword "WORLD" found in the extracted text!`) {
		t.Errorf("missing found message:\n%s", body)
	}
	if !strings.Contains(body, "<strong>world</strong>") {
		t.Errorf("match not highlighted:\n%s", body)
	}

	_, body = c.get("/?keyword=w.rld")
	if !strings.Contains(body, `Keyword "w.rld" not found in the extracted text.`) {
		t.Errorf("keyword should be matched literally:\n%s", body)
	}
}

func TestOCR_Failures(t *testing.T) {
	tests := []struct {
		name       string
		engineText string
		filename   string
		wantStatus int
		wantError  string
	}{
		{
			name:       "empty text",
			engineText: "  \n ",
			filename:   "scan.png",
			wantStatus: http.StatusOK,
			wantError:  "Error: no text detected in the image",
		},
		{
			name:       "unsupported language",
			engineText: "你好 123",
			filename:   "scan.jpg",
			wantStatus: http.StatusOK,
			wantError:  "Error: text in other languages detected",
		},
		{
			name:       "unsupported extension",
			engineText: "hello",
			filename:   "scan.gif",
			wantStatus: http.StatusBadRequest,
			wantError:  "Error: unsupported file type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeProvider{text: tt.engineText}, Config{})
			c := newClient(t, ts)

			resp, body := c.upload("/ocr", "file", tt.filename, testPNG(t))
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(body, tt.wantError) {
				t.Errorf("missing %q in:\n%s", tt.wantError, body)
			}

			_, body = c.get("/history")
			if !strings.Contains(body, "No history available yet.") {
				t.Error("failed upload should not be recorded in history")
			}
		})
	}
}

func TestOCR_FailureKeepsActiveText(t *testing.T) {
	engine := &fakeProvider{text: "first text"}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	c.upload("/ocr", "file", "a.png", testPNG(t))
	engine.set("")
	_, body := c.upload("/ocr", "file", "b.png", testPNG(t))
	if !strings.Contains(body, "Error: no text detected in the image") {
		t.Fatalf("expected failure message:\n%s", body)
	}

	_, body = c.get("/?keyword=first")
	if !strings.Contains(body, `Keyword "first" found in the extracted text!`) {
		t.Error("active text should survive a failed upload")
	}
}

func TestOCR_FilesFieldFallback(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{text: "hello"}, Config{})
	c := newClient(t, ts)

	resp, body := c.upload("/ocr", "files", "scan.png", testPNG(t))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Number of words: 1") {
		t.Errorf("status = %d, body:\n%s", resp.StatusCode, body)
	}
}

func TestOCR_UploadTooLarge(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{text: "hello"}, Config{MaxUploadBytes: 64})
	c := newClient(t, ts)

	resp, _ := c.upload("/ocr", "file", "scan.png", bytes.Repeat([]byte{0}, 4096))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHistory(t *testing.T) {
	engine := &fakeProvider{text: "one"}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	c.upload("/ocr", "file", "a.png", testPNG(t))
	engine.set("two")
	c.upload("/ocr", "file", "b.jpeg", testPNG(t))

	_, body := c.get("/history")
	for _, want := range []string{"Entry 1", "Entry 2", "/history/2/image", "Download History as CSV"} {
		if !strings.Contains(body, want) {
			t.Errorf("history page missing %q", want)
		}
	}
	if strings.Index(body, "Entry 1") > strings.Index(body, "Entry 2") {
		t.Error("history entries out of order")
	}

	resp, img := c.get("/history/1/image")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("image status = %d, content type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if _, err := png.Decode(strings.NewReader(img)); err != nil {
		t.Errorf("history image is not a PNG: %v", err)
	}

	for _, path := range []string{"/history/0/image", "/history/3/image"} {
		if resp, _ := c.get(path); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
	if resp, _ := c.get("/history/x/image"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric entry status = %d, want 400", resp.StatusCode)
	}
}

func TestExports(t *testing.T) {
	engine := &fakeProvider{text: "नमस्ते, \"world\""}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	if resp, _ := c.get("/export/json"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("json export before extraction status = %d, want 404", resp.StatusCode)
	}

	c.upload("/ocr", "file", "a.png", testPNG(t))

	resp, body := c.get("/export/json")
	if resp.Header.Get("Content-Type") != ocr.JSONContentType {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="extracted_text.json"` {
		t.Errorf("content disposition = %q", cd)
	}
	var doc map[string]string
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["extracted_text"] != engine.text {
		t.Errorf("extracted_text = %q", doc["extracted_text"])
	}

	resp, body = c.get("/export/history.csv")
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="history.csv"` {
		t.Errorf("content disposition = %q", cd)
	}
	if want := "text\n\"नमस्ते, \"\"world\"\"\"\n"; body != want {
		t.Errorf("csv = %q, want %q", body, want)
	}
}

func TestAPIOCR(t *testing.T) {
	engine := &fakeProvider{text: "hello दुनिया"}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	resp, body := c.upload("/api/ocr", "file", "a.png", testPNG(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var got apiResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello दुनिया" || got.WordCount != 2 {
		t.Errorf("response = %+v", got)
	}

	engine.set("12345")
	resp, body = c.upload("/api/ocr", "file", "a.png", testPNG(t))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	if !strings.Contains(body, "only Hindi and English are supported") {
		t.Errorf("body = %s", body)
	}

	// The API shares the caller's session with the views.
	_, body = c.get("/history")
	if !strings.Contains(body, "Entry 1") || strings.Contains(body, "Entry 2") {
		t.Errorf("history should hold exactly one entry:\n%s", body)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{text: "private"}, Config{})
	alice := newClient(t, ts)
	bob := newClient(t, ts)

	alice.upload("/ocr", "file", "a.png", testPNG(t))

	_, body := bob.get("/history")
	if !strings.Contains(body, "No history available yet.") {
		t.Error("second client sees first client's history")
	}
	if resp, _ := bob.get("/history/1/image"); resp.StatusCode != http.StatusNotFound {
		t.Error("second client can read first client's image")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{text: "hello"}, Config{})
	c := newClient(t, ts)

	c.upload("/ocr", "file", "a.png", testPNG(t))
	_, body := c.get("/metrics")
	for _, want := range []string{
		`ocrweb_extractions_total{engine="fake",outcome="success"} 1`,
		`ocrweb_http_requests_total{method="POST",path="POST /ocr",status="200"} 1`,
		"ocrweb_sessions_active 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAbout(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{}, Config{})
	_, body := newClient(t, ts).get("/about")
	for _, want := range []string{"About Us", "THE STEPS TO FOLLOW:", "Perform OCR", "fake"} {
		if !strings.Contains(body, want) {
			t.Errorf("about page missing %q", want)
		}
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newSessionStore(time.Minute, nil)
	store.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	entry, id := store.acquire(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	entry.session.History.Append(nil, "kept")
	entry.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})

	now = now.Add(30 * time.Second)
	entry, got := store.acquire(httptest.NewRecorder(), req)
	entry.mu.Unlock()
	if got != id || entry.session.History.Len() != 1 {
		t.Fatal("session should survive within ttl")
	}

	now = now.Add(2 * time.Minute)
	entry, got = store.acquire(httptest.NewRecorder(), req)
	entry.mu.Unlock()
	if got == id || entry.session.History.Len() != 0 {
		t.Error("idle session should have expired")
	}
	if n := len(store.entries); n != 1 {
		t.Errorf("store holds %d sessions, want 1", n)
	}
}

func TestSessionStore_IgnoresForgedCookie(t *testing.T) {
	store := newSessionStore(0, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not-a-uuid"})

	rec := httptest.NewRecorder()
	entry, id := store.acquire(rec, req)
	entry.mu.Unlock()
	if id == "not-a-uuid" {
		t.Error("invalid cookie value reused as session id")
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("new session cookie not set")
	}
}

func TestEngineFailureMasksCredentials(t *testing.T) {
	engine := &fakeProvider{err: errors.New(`Post "http://127.0.0.1:1/models/m:generateContent?key=SUPERSECRET123": dial tcp 127.0.0.1:1: connection refused`)}
	ts := newTestServer(t, engine, Config{})
	c := newClient(t, ts)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/ocr", http.StatusOK},
		{"/api/ocr", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := c.upload(tt.path, "file", "scan.png", testPNG(t))
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if strings.Contains(body, "SUPERSECRET123") {
				t.Errorf("response leaks the API key:\n%s", body)
			}
			if !strings.Contains(body, "key=***MASKED***") {
				t.Errorf("response missing masked engine error:\n%s", body)
			}
		})
	}
}

func TestSessionStore_CountReportsFinalSize(t *testing.T) {
	var last int
	store := newSessionStore(0, func(n int) { last = n })

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, _ := store.acquire(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			entry.mu.Unlock()
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if last != len(store.entries) || last != 50 {
		t.Errorf("last reported count = %d, store holds %d", last, len(store.entries))
	}
}

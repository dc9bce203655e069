package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/lehigh-university-libraries/ocrweb/pkg/raster"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type page struct {
	Nav    string
	Engine string
}

type homePage struct {
	page
	MaxUploadMB int64
	Error       string

	// Set right after a successful upload.
	Extracted bool
	Entry     int
	Text      string
	WordCount int

	HasActive   bool
	Keyword     string
	Found       bool
	Highlighted string
}

type historyPage struct {
	page
	Entries []ocr.Entry
}

type apiResponse struct {
	Text      string `json:"text,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) newHomePage(sess *ocr.Session) homePage {
	_, active := sess.Active()
	return homePage{
		page:        page{Nav: "home", Engine: s.pipeline.Engine()},
		MaxUploadMB: s.maxUpload >> 20,
		HasActive:   active,
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	data := s.newHomePage(entry.session)
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		if active, ok := entry.session.Active(); ok {
			outcome := ocr.Search(active.Text, keyword)
			s.metrics.ObserveSearch(outcome.Found)
			data.Keyword = keyword
			data.Found = outcome.Found
			data.Highlighted = outcome.Rendered
		}
	}
	s.views.render(w, http.StatusOK, "home", data)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.views.render(w, http.StatusOK, "about", page{Nav: "about", Engine: s.pipeline.Engine()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	s.views.render(w, http.StatusOK, "history", historyPage{
		page:    page{Nav: "history", Engine: s.pipeline.Engine()},
		Entries: entry.session.History.List(),
	})
}

func (s *Server) handleHistoryImage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		http.Error(w, "Invalid history entry", http.StatusBadRequest)
		return
	}

	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	entries := entry.session.History.List()
	if n < 1 || n > len(entries) {
		http.Error(w, "History entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", raster.PNGMimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(entries[n-1].Image)
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)

	entry, id := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	data := s.newHomePage(entry.session)
	if err != nil {
		data.Error = err.Error()
		s.views.render(w, http.StatusBadRequest, "home", data)
		return
	}

	result := s.pipeline.Run(r.Context(), entry.session, upload)
	if !result.Succeeded {
		slog.Debug("Upload rejected", "session", id, "reason", result.FailureReason())
		data.Error = result.FailureReason()
		s.views.render(w, http.StatusOK, "home", data)
		return
	}

	data.HasActive = true
	data.Extracted = true
	data.Entry = entry.session.History.Len()
	data.Text = result.Text
	data.WordCount = result.WordCount
	s.views.render(w, http.StatusOK, "home", data)
}

func (s *Server) handleAPIOCR(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	upload, err := s.readUpload(w, r)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	result := s.pipeline.Run(r.Context(), entry.session, upload)
	if !result.Succeeded {
		respondWithError(w, result.FailureReason(), http.StatusUnprocessableEntity)
		return
	}

	_ = json.NewEncoder(w).Encode(apiResponse{Text: result.Text, WordCount: result.WordCount})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	active, ok := entry.session.Active()
	if !ok {
		http.Error(w, "No extracted text to export", http.StatusNotFound)
		return
	}

	body, err := ocr.ToJSON(active.Text)
	if err != nil {
		slog.Error("Failed to export JSON", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.metrics.ObserveExport("json")
	attach(w, ocr.JSONFileName, ocr.JSONContentType, body)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	entry, _ := s.sessions.acquire(w, r)
	defer entry.mu.Unlock()

	body, err := ocr.ToCSV(entry.session.History.List())
	if err != nil {
		slog.Error("Failed to export CSV", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.metrics.ObserveExport("csv")
	attach(w, ocr.CSVFileName, ocr.CSVContentType, body)
}

// readUpload reads the image from the "file" field, falling back to
// "files", and enforces the size limit and allowed extensions.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("file exceeds the %d MB upload limit", s.maxUpload>>20)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile("files")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q: choose a jpg, jpeg or png image", ext)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func attach(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: message})
}

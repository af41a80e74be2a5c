package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/summitos/summit-sync/internal/scanning"
)

// corsError writes an error response with CORS headers set.
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTrips dispatches list and upload.
func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTrips(w, r)
	case http.MethodPost:
		s.handleUploadCapture(w, r)
	default:
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.service.ListTrips()
	if err != nil {
		slog.Error("Error listing trips", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// handleUploadCapture ingests one screenshot through the full pipeline.
func (s *Server) handleUploadCapture(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(r) {
		corsError(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	// 50MB cap covers high-resolution phone photos.
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Error parsing form"})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	rec, err := s.service.ProcessImage(r.Context(), header.Filename, data, contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrExtractionEmpty) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "No readable text in image",
			})
			return
		}
		slog.Error("Error processing capture", "filename", header.Filename, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleTripByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/trips/")
	if id == "" {
		corsError(w, "Trip ID required", http.StatusBadRequest)
		return
	}

	rec, err := s.service.GetTrip(id)
	if err != nil {
		corsError(w, "Trip not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleReconcile kicks one reconciliation sweep on demand.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sweeper == nil {
		corsError(w, "Reconciliation not configured", http.StatusServiceUnavailable)
		return
	}

	linked, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		slog.Error("Manual reconciliation sweep failed", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"linked": linked})
}

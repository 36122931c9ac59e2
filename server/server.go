// Package server exposes a Converter over HTTP.
//
//	POST /convert   multipart form with "file" and "targetFormat"
//	GET  /formats   accepted formats and document routes
//	GET  /health    liveness and engine state
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute"
	"github.com/flanksource/transmute/api"
)

// multipartOverhead is allowed on top of the converter's size limit for
// form boundaries and headers.
const multipartOverhead = 1 << 20

type Server struct {
	conv *transmute.Converter
	log  logger.Logger
	mux  *http.ServeMux
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func New(conv *transmute.Converter) *Server {
	s := &Server{
		conv: conv,
		log:  logger.GetLogger("server"),
		mux:  http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /convert", s.handleConvert)
	s.mux.HandleFunc("GET /formats", s.handleFormats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// requests for up to the grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	limit := s.conv.MaxSize()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (limit > 0 && r.ContentLength > limit+multipartOverhead) {
			s.writeError(w, api.TooLarge(r.ContentLength, limit))
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid form", Details: err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	target := r.FormValue("targetFormat")
	if err != nil || target == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing file or target format"})
		return
	}
	defer file.Close()

	if limit > 0 && header.Size > limit {
		s.writeError(w, api.TooLarge(header.Size, limit))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Failed to read upload", Details: err.Error()})
		return
	}

	to, _ := api.ParseFormat(target)
	start := time.Now()
	res, err := s.conv.Convert(r.Context(), transmute.Request{
		Data:     data,
		Filename: header.Filename,
		To:       to,
	})
	if err != nil {
		s.log.Warnf("convert %s to %s failed: %v", header.Filename, to, err)
		s.writeError(w, err)
		return
	}
	s.log.Infof("converted %s (%d bytes) to %s (%d bytes) in %s",
		header.Filename, len(data), res.Filename, res.Len(), time.Since(start))

	h := w.Header()
	h.Set("Content-Type", res.MimeType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	h.Set("Content-Length", strconv.Itoa(res.Len()))
	h.Set("Cache-Control", "no-cache")
	if res.Pages > 0 {
		h.Set("X-Page-Count", strconv.Itoa(res.Pages))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := res.WriteTo(w); err != nil {
		s.log.Debugf("write response: %v", err)
	}
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transmute.Formats(r.URL.Query().Has("all")))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"engineReady": s.conv.Engine().Ready(),
	})
}

// Status maps a conversion error to an HTTP status code.
func Status(err error) int {
	code, ok := api.CodeOf(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	switch code {
	case api.CodeUnsupportedConversion:
		return http.StatusBadRequest
	case api.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case api.CodeConversionFailed, api.CodeDecodeFailed, api.CodeEncodeFailed:
		return http.StatusUnprocessableEntity
	case api.CodeEngineNotReady, api.CodeEngineInitFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := Status(err)
	var title string
	switch status {
	case http.StatusBadRequest:
		title = "Unsupported conversion"
	case http.StatusRequestEntityTooLarge:
		title = fmt.Sprintf("File too large. Maximum size is %d bytes", s.conv.MaxSize())
	case http.StatusUnprocessableEntity:
		title = "Error converting file"
	case http.StatusServiceUnavailable:
		title = "Conversion engine unavailable"
	default:
		title = "Internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: title, Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

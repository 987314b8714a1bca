package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/middleware"
)

type categorizeRequest struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
}

type chatRequest struct {
	Message string               `json:"message"`
	History []assistant.ChatTurn `json:"history"`
}

func (s *Server) categorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.svc.Assistant.Categorize(r.Context(), req.Description, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply, err := s.svc.Assistant.Chat(r.Context(), userID(r), req.Message, req.History)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// parseBill accepts a multipart upload in the "file" field and returns the
// assistant's reading of the receipt as is.
func (s *Server) parseBill(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart envelope around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, assistant.MaxUploadSize+64<<10)
	if err := r.ParseMultipartForm(assistant.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds 10 MiB")
			return
		}
		s.writeError(w, r, invalidBody("expected a multipart form with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, invalidBody("file is required"))
		return
	}
	defer file.Close()
	if header.Size > assistant.MaxUploadSize {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds 10 MiB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := file.Read(sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	parsed, err := s.svc.Assistant.ParseBill(r.Context(), header.Filename, contentType, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(parsed)
}

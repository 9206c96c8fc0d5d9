package shipments_api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultClient = "Natura"

type uploadResponse struct {
	Success bool                 `json:"success"`
	BatchID int64                `json:"batchId"`
	Status  models.UploadStatus  `json:"status"`
	Summary models.UploadSummary `json:"summary"`
	Message string               `json:"message,omitempty"`
}

// postUpload: multipart поле file, плюс uploadedBy и cliente (по умолчанию Natura).
func (a *API) postUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes)

	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		writeError(w, r, http.StatusBadRequest, "invalid_content_type", "Se espera multipart/form-data", nil)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file_too_large", "El archivo es demasiado grande", nil)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_form", "Formulario inválido", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing_file", "No se proporcionó ningún archivo", nil)
		return
	}
	defer file.Close()

	uploadedBy := strings.TrimSpace(r.FormValue("uploadedBy"))
	if uploadedBy == "" {
		uploadedBy = ingest.DefaultUploadedBy
	}
	client := strings.TrimSpace(r.FormValue("cliente"))
	if client == "" {
		client = defaultClient
	}
	v, err := carriers.Lookup(client)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown_carrier", err.Error(), nil)
		return
	}

	if !a.allowUpload(w, r, uploadedBy) {
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_file", "No se pudo leer el archivo", err.Error())
		return
	}

	out, err := a.uploads.Upload(r.Context(), ingest.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		UploadedBy:  uploadedBy,
		Client:      client,
		Variant:     v,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, uploadResponse{
			Success: out.Status == models.UploadCompleted,
			BatchID: out.BatchID,
			Status:  out.Status,
			Summary: out.Summary,
		})
	case out != nil && (errors.Is(err, ingest.ErrStructure) || errors.Is(err, ingest.ErrEmptyFile) || errors.Is(err, ingest.ErrBadFile)):
		msg := "La estructura del archivo no coincide con el formato esperado"
		if !errors.Is(err, ingest.ErrStructure) {
			msg = errors.Cause(err).Error()
			if len(out.Summary.Errors) > 0 {
				msg = out.Summary.Errors[0]
			}
		}
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			BatchID: out.BatchID,
			Status:  out.Status,
			Summary: out.Summary,
			Message: msg,
		})
	default:
		a.fail(w, r, err)
	}
}

// allowUpload - лимит загрузок на пользователя. Ошибка лимитера не блокирует загрузку.
func (a *API) allowUpload(w http.ResponseWriter, r *http.Request, uploadedBy string) bool {
	if a.limiter == nil || a.opts.UploadsPerMinute <= 0 {
		return true
	}
	ok, _, err := a.limiter.Allow(r.Context(), "upload:"+uploadedBy, a.opts.UploadsPerMinute, uploadWindow)
	if err != nil {
		a.log.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(uploadWindow.Seconds())))
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", "Demasiadas cargas, intente más tarde", nil)
		return false
	}
	return true
}

func (a *API) listUploads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit inválido", nil)
			return
		}
		limit = n
	}
	batches, err := a.uploads.List(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if batches == nil {
		batches = []models.UploadBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

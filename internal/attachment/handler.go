package attachment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/radif/attachments/internal/response"
)

const (
	multipartMemory = 32 << 20
	jsonBodyLimit   = 1 << 20
)

// Handler holds HTTP handlers for attachment endpoints.
type Handler struct {
	svc             *Service
	maxRequestBytes int64
	obs             Observer
}

// NewHandler creates a new attachment Handler. maxRequestBytes caps the body of
// one proxied multipart upload.
func NewHandler(svc *Service, maxRequestBytes int64) *Handler {
	return &Handler{svc: svc, maxRequestBytes: maxRequestBytes, obs: svc.obs}
}

// Register mounts the attachment routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/{taskId}/sas/upload", h.RequestUploadSlot)
	r.Post("/{taskId}/upload", h.Upload)
	r.Get("/{taskId}/list", h.List)
	r.Get("/{taskId}/download", h.Download)
	r.Get("/{taskId}/preview", h.Preview)
	r.Delete("/{taskId}/delete", h.Delete)
}

type uploadSlotRequest struct {
	Filename    string `json:"filename"    example:"report.pdf"`
	ContentType string `json:"contentType" example:"application/pdf"`
	Size        *int64 `json:"size"        example:"1048576"`
}

type uploadSlotResponse struct {
	UploadURL       string            `json:"uploadUrl"       example:"https://storage.example.com/attachments/tasks/t1/0b9c...-report.pdf?X-Amz-Signature=..."`
	BlobName        string            `json:"blobName"        example:"tasks/t1/0b9c2f5e-6a7d-4c1e-9f3a-2d8b7e6c5a41-report.pdf"`
	ExpiresOn       string            `json:"expiresOn"       example:"2026-02-27T14:53:34.000Z"`
	RequiredHeaders map[string]string `json:"requiredHeaders"`
	OptionalHeaders map[string]string `json:"optionalHeaders"`
}

type uploadedFile struct {
	Name           string `json:"name"                     example:"report.pdf"`
	BlobName       string `json:"blobName"                 example:"tasks/t1/0b9c2f5e-6a7d-4c1e-9f3a-2d8b7e6c5a41-report.pdf"`
	Size           int64  `json:"size"                     example:"1048576"`
	ContentType    string `json:"contentType"              example:"application/pdf"`
	UploadedAt     string `json:"uploadedAt"               example:"2026-02-27T14:48:34.000Z"`
	UploadedByName string `json:"uploadedByName,omitempty" example:"Sara"`
	UploadedByID   string `json:"uploadedById,omitempty"   example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

type failedFile struct {
	Name  string `json:"name"  example:"huge.iso"`
	Error string `json:"error" example:"file too large (max 100 MB)"`
}

type uploadResponse struct {
	Uploaded []uploadedFile `json:"uploaded"`
	Failed   []failedFile   `json:"failed,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type listResponse struct {
	Items []Item `json:"items"`
}

type deleteResponse struct {
	OK      bool `json:"ok"      example:"true"`
	Deleted bool `json:"deleted" example:"true"`
}

// RequestUploadSlot godoc
//
//	@Summary		Request a delegated upload slot
//	@Description	Returns a short-lived signed URL permitting create+write of one new object under the task. The client PUTs the bytes directly to the store with requiredHeaders set.
//	@Tags			attachments
//	@Accept			json
//	@Produce		json
//	@Param			taskId	path		string				true	"Task ID"
//	@Param			request	body		uploadSlotRequest	true	"File description"
//	@Success		200		{object}	uploadSlotResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/attachments/{taskId}/sas/upload [post]
func (h *Handler) RequestUploadSlot(w http.ResponseWriter, r *http.Request) {
	var req uploadSlotRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonBodyLimit)).Decode(&req); err != nil {
		response.BadRequest(w, "filename, contentType, size required")
		return
	}
	if req.Size == nil {
		response.BadRequest(w, "filename, contentType, size required")
		return
	}

	slot, err := h.svc.RequestUploadSlot(r.Context(), chi.URLParam(r, "taskId"), req.Filename, req.ContentType, *req.Size)
	if err != nil {
		h.writeError(w, r, err, "failed to create upload slot")
		return
	}

	response.OK(w, uploadSlotResponse{
		UploadURL:       slot.UploadURL,
		BlobName:        slot.Key,
		ExpiresOn:       formatTime(slot.ExpiresAt),
		RequiredHeaders: slot.RequiredHeaders,
		OptionalHeaders: slot.OptionalHeaders,
	})
}

// Upload godoc
//
//	@Summary		Upload files through the server
//	@Description	Accepts one or more multipart "file" parts and writes each to the store. Each file succeeds or fails on its own. uploadedByName and uploadedById are display hints only.
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			taskId			path		string	true	"Task ID"
//	@Param			file			formData	file	true	"File(s) to upload"
//	@Param			uploadedByName	formData	string	false	"Uploader display name"
//	@Param			uploadedById	formData	string	false	"Uploader id"
//	@Success		200				{object}	uploadResponse
//	@Failure		400				{object}	response.ErrorBody
//	@Failure		413				{object}	response.ErrorBody
//	@Failure		500				{object}	uploadResponse
//	@Router			/attachments/{taskId}/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.TooLarge(w, "request body too large")
			return
		}
		response.BadRequest(w, "file field required")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File["file"]
	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        openPart(fh),
		})
	}
	by := Uploader{
		Name: firstValue(r.MultipartForm, "uploadedByName"),
		ID:   firstValue(r.MultipartForm, "uploadedById"),
	}

	results, err := h.svc.UploadFiles(r.Context(), chi.URLParam(r, "taskId"), files, by)
	if err != nil {
		h.writeError(w, r, err, "failed to upload attachment")
		return
	}

	out := uploadResponse{Uploaded: make([]uploadedFile, 0, len(results))}
	var failures []error
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, res.Err)
			out.Failed = append(out.Failed, failedFile{Name: res.Name, Error: h.fileErrorMessage(res.Err)})
			continue
		}
		out.Uploaded = append(out.Uploaded, uploadedFile{
			Name:           res.Name,
			BlobName:       res.Key,
			Size:           res.Size,
			ContentType:    res.ContentType,
			UploadedAt:     formatTime(res.UploadedAt),
			UploadedByName: res.UploadedByName,
			UploadedByID:   res.UploadedByID,
		})
	}
	if len(out.Uploaded) == 0 {
		status := allFailedStatus(failures)
		out.Error = "failed to upload attachment"
		if status == http.StatusRequestEntityTooLarge {
			out.Error = h.tooLargeMessage()
		}
		response.JSON(w, status, out)
		return
	}
	response.OK(w, out)
}

// List godoc
//
//	@Summary		List task attachments
//	@Description	Enumerates the objects stored under the task, in store order.
//	@Tags			attachments
//	@Produce		json
//	@Param			taskId	path		string	true	"Task ID"
//	@Success		200		{object}	listResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/attachments/{taskId}/list [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAttachments(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeError(w, r, err, "failed to list attachments")
		return
	}
	response.OK(w, listResponse{Items: items})
}

// Download godoc
//
//	@Summary		Download an attachment
//	@Description	Streams the object. inline=1 (or true) renders in the browser; otherwise it is served as an attachment.
//	@Tags			attachments
//	@Produce		octet-stream
//	@Param			taskId	path		string	true	"Task ID"
//	@Param			name	query		string	true	"Object key"
//	@Param			inline	query		string	false	"1 or true for inline disposition"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/attachments/{taskId}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dl, err := h.svc.OpenDownload(r.Context(), q.Get("name"), isTruthy(q.Get("inline")))
	if err != nil {
		h.writeError(w, r, err, "failed to download attachment")
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", dl.ContentType)
	hdr.Set("Content-Disposition", dl.Disposition)
	if dl.Size >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	h.stream(w, r, dl.Body, http.StatusOK)
}

// Preview godoc
//
//	@Summary		Preview an attachment
//	@Description	Streams the object inline and honors a single "Range: bytes=a-b" header.
//	@Tags			attachments
//	@Produce		octet-stream
//	@Param			taskId	path	string	true	"Task ID"
//	@Param			name	query	string	true	"Object key"
//	@Param			Range	header	string	false	"bytes=start-end"
//	@Success		200		{file}	binary
//	@Success		206		{file}	binary
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		416		"Range Not Satisfiable"
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/attachments/{taskId}/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.OpenPreview(r.Context(), r.URL.Query().Get("name"), r.Header.Get("Range"))
	if err != nil {
		var rangeErr *RangeError
		if errors.As(err, &rangeErr) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		h.writeError(w, r, err, "failed to preview attachment")
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", p.ContentType)
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("Content-Length", strconv.FormatInt(p.Size, 10))
	hdr.Set("Content-Disposition", p.Disposition)
	status := http.StatusOK
	if p.Partial {
		hdr.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.ObjectSize))
		status = http.StatusPartialContent
	}
	h.stream(w, r, p.Body, status)
}

// Delete godoc
//
//	@Summary		Delete an attachment
//	@Description	Deletes the object if its key lies under the task's prefix. Deleting a missing object returns deleted=false.
//	@Tags			attachments
//	@Produce		json
//	@Param			taskId	path		string	true	"Task ID"
//	@Param			name	query		string	true	"Object key"
//	@Success		200		{object}	deleteResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/attachments/{taskId}/delete [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteAttachment(r.Context(), chi.URLParam(r, "taskId"), r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, r, err, "failed to delete attachment")
		return
	}
	response.OK(w, deleteResponse{OK: true, Deleted: deleted})
}

// stream copies body to the client. A store-side failure before the first byte
// becomes a 500; after it the response is aborted so the client never sees a
// clean end of a truncated body.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, body io.ReadCloser, status int) {
	log := zerolog.Ctx(r.Context())

	w.WriteHeader(status)
	n, err := Stream(r.Context(), w, body)
	h.obs.BytesDownloaded(n)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrStream) {
		log.Debug().Err(err).Int64("bytes", n).Msg("client stopped reading")
		return
	}
	log.Error().Err(err).Int64("bytes", n).Msg("attachment stream failed")
	panic(http.ErrAbortHandler)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	switch {
	case errors.Is(err, ErrTooLarge):
		response.TooLarge(w, h.tooLargeMessage())
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "))
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, context.Canceled):
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("request cancelled")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(failMsg)
		response.InternalError(w, failMsg)
	}
}

func (h *Handler) fileErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return h.tooLargeMessage()
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	default:
		return "failed to store file"
	}
}

// allFailedStatus picks the status for an upload in which no file succeeded.
// Any store failure makes it a 500; otherwise the client is at fault.
func allFailedStatus(failures []error) int {
	tooLarge := 0
	for _, err := range failures {
		switch {
		case errors.Is(err, ErrTooLarge):
			tooLarge++
		case errors.Is(err, ErrValidation):
		default:
			return http.StatusInternalServerError
		}
	}
	if tooLarge == len(failures) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("file too large (max %d MB)", h.svc.MaxUploadBytes()/1024/1024)
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

func firstValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func isTruthy(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true"
}

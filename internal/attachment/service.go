// Package attachment implements task attachment storage: key naming, delegated
// upload credentials, proxied uploads, listing, streamed downloads and
// prefix-guarded deletion. It owns no state; the object store is the source of truth.
package attachment

import (
	"context"
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/radif/attachments/internal/storage"
)

// Metadata keys attached at write time. Stores fold key case, so they are kept lower-case.
const (
	MetaTaskID         = "taskid"
	MetaUploadedAt     = "uploadedat"
	MetaOriginalName   = "originalname"
	MetaUploadedByName = "uploadedbyname"
	MetaUploadedByID   = "uploadedbyid"
)

const defaultContentType = "application/octet-stream"

// Observer receives attachment events, typically to feed metrics.
type Observer interface {
	UploadSlotIssued()
	FileUploaded(bytes int64)
	FileUploadFailed()
	BytesDownloaded(n int64)
	AttachmentDeleted(deleted bool)
}

type nopObserver struct{}

func (nopObserver) UploadSlotIssued()      {}
func (nopObserver) FileUploaded(int64)     {}
func (nopObserver) FileUploadFailed()      {}
func (nopObserver) BytesDownloaded(int64)  {}
func (nopObserver) AttachmentDeleted(bool) {}

// Options configures upload limits.
type Options struct {
	MaxUploadBytes int64
	SlotTTL        time.Duration
	// MaxSlotTTL bounds SlotTTL; defaults to one hour.
	MaxSlotTTL time.Duration
}

// Service contains the attachment business logic.
type Service struct {
	store     storage.Storage
	signer    storage.UploadSigner
	issuer    *Issuer
	maxUpload int64
	slotTTL   time.Duration
	obs       Observer
	now       func() time.Time
}

// NewService creates a Service over a shared, long-lived store handle. obs may be nil.
func NewService(driver storage.Driver, opts Options, obs Observer) *Service {
	if obs == nil {
		obs = nopObserver{}
	}
	maxTTL := opts.MaxSlotTTL
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}
	return &Service{
		store:     driver,
		signer:    driver,
		issuer:    NewIssuer(driver, maxTTL),
		maxUpload: opts.MaxUploadBytes,
		slotTTL:   opts.SlotTTL,
		obs:       obs,
		now:       time.Now,
	}
}

// Issuer exposes the credential issuer, e.g. for the startup signing check.
func (s *Service) Issuer() *Issuer { return s.issuer }

// MaxUploadBytes returns the per-file size cap.
func (s *Service) MaxUploadBytes() int64 { return s.maxUpload }

// UploadSlot is everything a client needs to write one file directly to the store.
type UploadSlot struct {
	UploadURL       string
	Key             string
	ExpiresAt       time.Time
	RequiredHeaders map[string]string
	OptionalHeaders map[string]string
}

// RequestUploadSlot validates an upload intent and returns a delegated
// create+write credential for a fresh key. No bytes pass through the service.
func (s *Service) RequestUploadSlot(ctx context.Context, taskID, filename, contentType string, size int64) (*UploadSlot, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	if filename == "" || contentType == "" {
		return nil, validationf("filename, contentType, size required")
	}
	if size <= 0 {
		return nil, validationf("size must be positive")
	}
	if size > s.maxUpload {
		return nil, ErrTooLarge
	}

	key, err := MakeKey(taskID, filename)
	if err != nil {
		return nil, err
	}
	// Required headers are signed into the URL; optional ones are not.
	required := s.signer.UploadHeaders(contentType)
	required[s.signer.MetadataHeader(MetaTaskID)] = taskID
	required[s.signer.MetadataHeader(MetaOriginalName)] = encodeMeta(filename)
	cred, err := s.issuer.IssueUploadCredential(ctx, key, required, []Permission{PermCreate, PermWrite}, s.slotTTL)
	if err != nil {
		return nil, err
	}

	optional := map[string]string{
		s.signer.MetadataHeader(MetaUploadedAt):     "",
		s.signer.MetadataHeader(MetaUploadedByName): "",
		s.signer.MetadataHeader(MetaUploadedByID):   "",
	}

	s.obs.UploadSlotIssued()
	zerolog.Ctx(ctx).Info().Str("task_id", taskID).Str("key", key).Int64("size", size).Msg("upload slot issued")

	return &UploadSlot{
		UploadURL:       cred.URL,
		Key:             key,
		ExpiresAt:       cred.ExpiresAt,
		RequiredHeaders: cred.Headers,
		OptionalHeaders: optional,
	}, nil
}

// UploadFile is one file of a proxied upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Uploader carries client-supplied, unverified display hints. They are stored as
// metadata only and never consulted for authorization.
type Uploader struct {
	Name string
	ID   string
}

// UploadResult is the outcome of writing one file. Err is nil on success.
type UploadResult struct {
	Name           string
	Key            string
	Size           int64
	ContentType    string
	UploadedAt     time.Time
	UploadedByName string
	UploadedByID   string
	Err            error
}

// UploadFiles writes each file to the store with its metadata. A failed file
// does not stop the others; every file gets its own result. The call itself
// fails only when the request shape is invalid, before anything is written.
func (s *Service) UploadFiles(ctx context.Context, taskID string, files []UploadFile, by Uploader) ([]UploadResult, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, validationf("file field required")
	}

	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		res := s.uploadOne(ctx, taskID, f, by)
		if res.Err != nil {
			s.obs.FileUploadFailed()
			zerolog.Ctx(ctx).Error().Err(res.Err).Str("task_id", taskID).Str("file", f.Name).Msg("upload attachment failed")
		} else {
			s.obs.FileUploaded(res.Size)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) uploadOne(ctx context.Context, taskID string, f UploadFile, by Uploader) UploadResult {
	contentType := f.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	res := UploadResult{
		Name:           f.Name,
		ContentType:    contentType,
		UploadedByName: by.Name,
		UploadedByID:   by.ID,
	}
	if f.Size > s.maxUpload {
		res.Err = ErrTooLarge
		return res
	}

	key, err := MakeKey(taskID, f.Name)
	if err != nil {
		res.Err = err
		return res
	}
	res.Key = key

	body, err := f.Open()
	if err != nil {
		res.Err = validationf("open %q: %v", f.Name, err)
		return res
	}
	defer body.Close()

	uploadedAt := s.now().UTC()
	meta := map[string]string{
		MetaTaskID:       taskID,
		MetaUploadedAt:   formatTime(uploadedAt),
		MetaOriginalName: encodeMeta(f.Name),
	}
	if by.Name != "" {
		meta[MetaUploadedByName] = encodeMeta(by.Name)
	}
	if by.ID != "" {
		meta[MetaUploadedByID] = by.ID
	}

	cr := &countingReader{r: io.LimitReader(body, s.maxUpload+1)}
	if err := s.store.Put(ctx, key, cr, f.Size, storage.PutOptions{ContentType: contentType, Metadata: meta}); err != nil {
		res.Err = storeErr("put attachment", err)
		return res
	}
	if cr.n > s.maxUpload {
		// The declared size lied; remove what was written.
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("remove oversize attachment")
		}
		res.Err = ErrTooLarge
		return res
	}

	res.Size = cr.n
	res.UploadedAt = uploadedAt
	return res
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// encodeMeta percent-encodes a metadata value so non-ASCII survives header transport.
func encodeMeta(v string) string {
	return url.PathEscape(v)
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

package attachment

import (
	"context"
	"maps"
	"time"

	"github.com/radif/attachments/internal/storage"
)

// Permission is a single right granted by a delegated credential.
type Permission string

const (
	PermCreate Permission = "c"
	PermWrite  Permission = "w"
	PermRead   Permission = "r"
	PermDelete Permission = "d"
)

// delegable lists the permissions a client may ever receive through a signed URL.
var delegable = map[Permission]bool{PermCreate: true, PermWrite: true}

// Credential is a signed, time-limited URL. It is never persisted, so it cannot
// be revoked before ExpiresAt. The write must carry Headers exactly.
type Credential struct {
	URL         string
	Headers     map[string]string
	Permissions []Permission
	ExpiresAt   time.Time
}

// Issuer mints delegated write credentials for task-scoped keys.
type Issuer struct {
	signer storage.UploadSigner
	maxTTL time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer that refuses lifetimes longer than maxTTL.
func NewIssuer(signer storage.UploadSigner, maxTTL time.Duration) *Issuer {
	return &Issuer{signer: signer, maxTTL: maxTTL, now: time.Now}
}

// IssueUploadCredential signs key for a direct write bound to headers. key must
// come from MakeKey.
func (i *Issuer) IssueUploadCredential(ctx context.Context, key string, headers map[string]string, perms []Permission, ttl time.Duration) (*Credential, error) {
	if !isTaskScoped(key) {
		return nil, validationf("key %q is not task-scoped", key)
	}
	if len(perms) == 0 {
		return nil, validationf("at least one permission required")
	}
	for _, p := range perms {
		if !delegable[p] {
			return nil, validationf("permission %q cannot be delegated", p)
		}
	}
	if ttl <= 0 || ttl > i.maxTTL {
		return nil, validationf("ttl %s outside (0, %s]", ttl, i.maxTTL)
	}

	expiresAt := i.now().Add(ttl).UTC()
	url, err := i.signer.SignUpload(ctx, key, headers, ttl)
	if err != nil {
		return nil, storeErr("sign upload", err)
	}
	return &Credential{
		URL:         url,
		Headers:     maps.Clone(headers),
		Permissions: append([]Permission(nil), perms...),
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify mints a throwaway credential so a misconfigured signing identity is
// caught at startup rather than on the first request.
func (i *Issuer) Verify(ctx context.Context) error {
	_, err := i.IssueUploadCredential(ctx, TaskPrefix("startup-check")+"signing", i.signer.UploadHeaders(defaultContentType),
		[]Permission{PermCreate, PermWrite}, min(time.Minute, i.maxTTL))
	return err
}

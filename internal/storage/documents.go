package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/uniride/uniride-api/internal/apperr"
)

// DocumentKind names one of the documents a driver uploads with a vehicle.
type DocumentKind string

const (
	PropertyCard DocumentKind = "property_card"
	License      DocumentKind = "license"
	Insurance    DocumentKind = "insurance"
)

// VehicleDocuments lists the documents a vehicle registration requires,
// in form-field order.
var VehicleDocuments = []DocumentKind{PropertyCard, License, Insurance}

var allowedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// Documents validates uploads by content and stores them under
// <owner>/<kind>_<unix>.<ext>.
type Documents struct {
	store    *LocalStorage
	maxBytes int64
	now      func() time.Time
}

// NewDocuments wraps store.  maxBytes <= 0 means 5 MiB.
func NewDocuments(store *LocalStorage, maxBytes int64) *Documents {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Documents{store: store, maxBytes: maxBytes, now: time.Now}
}

// Save reads r, checks its size and sniffed type, writes it and returns
// the public URL.
func (d *Documents) Save(ctx context.Context, ownerID string, kind DocumentKind, r io.Reader) (string, error) {
	if ownerID == "" {
		return "", apperr.Invalid("owner", "is required")
	}
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.Invalid(string(kind), "file is empty")
	}
	if int64(len(data)) > d.maxBytes {
		return "", apperr.Invalid(string(kind), fmt.Sprintf("file exceeds %d bytes", d.maxBytes))
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return "", apperr.Invalid(string(kind), "only JPEG, PNG or PDF files are accepted, got "+mt.String())
	}
	path := fmt.Sprintf("%s/%s_%d%s", ownerID, kind, d.now().Unix(), mt.Extension())
	if err := d.store.Save(ctx, path, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return d.store.URL(path), nil
}

// Discard removes a document saved earlier, given its public URL.  It is
// used to clean up when the vehicle row cannot be written.
func (d *Documents) Discard(ctx context.Context, url string) error {
	prefix := d.store.URL("")
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return nil
	}
	return d.store.Delete(ctx, url[len(prefix):])
}

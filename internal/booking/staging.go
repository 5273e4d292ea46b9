// Package booking implements the booking form: document staging, the
// per-visitor draft and the submission flow with its upload fallback chain.
package booking

import (
	"slices"

	"github.com/google/uuid"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/validation"
)

// Staging holds the documents of one draft. Local documents are selected but
// not yet on the server; uploaded documents were confirmed by the server.
// Together they never exceed domain.MaxDocuments.
type Staging struct {
	local    []domain.LocalDocument
	uploaded []domain.UploadedDocument
}

// Local returns a copy of the staged local documents
func (s *Staging) Local() []domain.LocalDocument {
	return slices.Clone(s.local)
}

// Uploaded returns a copy of the confirmed documents
func (s *Staging) Uploaded() []domain.UploadedDocument {
	return slices.Clone(s.uploaded)
}

// Count returns the number of staged documents of both kinds
func (s *Staging) Count() int {
	return len(s.local) + len(s.uploaded)
}

// AddLocalFile stages a file for upload
func (s *Staging) AddLocalFile(f domain.FileUpload) (domain.LocalDocument, error) {
	if s.Count() >= domain.MaxDocuments {
		return domain.LocalDocument{}, domain.NewError(domain.KindCapacityExceeded, validation.MsgMaxDocuments)
	}
	if !validation.IsValidFileSize(f.Size()) {
		return domain.LocalDocument{}, domain.NewError(domain.KindFileTooLarge, validation.MsgMaxFileSize)
	}

	doc := domain.LocalDocument{
		ID:        uuid.NewString(),
		File:      f,
		Name:      f.Name,
		SizeLabel: domain.FormatFileSize(f.Size()),
		MimeType:  f.ContentType,
	}
	s.local = append(s.local, doc)
	return doc, nil
}

// RemoveLocalFile drops a staged file; unknown ids are ignored
func (s *Staging) RemoveLocalFile(id string) {
	s.local = slices.DeleteFunc(s.local, func(d domain.LocalDocument) bool {
		return d.ID == id
	})
}

// RemoveUploadedDocument forgets a confirmed document; unknown ids are ignored.
// The file stays on the server.
func (s *Staging) RemoveUploadedDocument(id int64) {
	s.uploaded = slices.DeleteFunc(s.uploaded, func(d domain.UploadedDocument) bool {
		return d.ID == id
	})
}

// CommitUpload replaces the local documents that were sent with the records
// the server returned. If the result would break the document limit the
// state is left unchanged.
func (s *Staging) CommitUpload(sentIDs []string, docs []domain.UploadedDocument) error {
	remaining := slices.DeleteFunc(slices.Clone(s.local), func(d domain.LocalDocument) bool {
		return slices.Contains(sentIDs, d.ID)
	})

	if len(remaining)+len(s.uploaded)+len(docs) > domain.MaxDocuments {
		return domain.NewError(domain.KindCapacityExceeded, validation.MsgMaxDocuments)
	}

	s.local = remaining
	s.uploaded = append(s.uploaded, docs...)
	return nil
}

// Reset drops every staged document
func (s *Staging) Reset() {
	s.local = nil
	s.uploaded = nil
}

// ValidDocuments reports whether an upload result is usable: non-empty with
// every record complete
func ValidDocuments(docs []domain.UploadedDocument) bool {
	if len(docs) == 0 {
		return false
	}
	for _, d := range docs {
		if !d.Valid() {
			return false
		}
	}
	return true
}

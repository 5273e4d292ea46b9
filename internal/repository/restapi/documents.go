package restapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/normalize"
)

const uploadField = "files"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// DocumentUploader implements repository.DocumentUploader
type DocumentUploader struct {
	client *Client
}

// NewDocumentUploader creates a new DocumentUploader
func NewDocumentUploader(client *Client) *DocumentUploader {
	return &DocumentUploader{client: client}
}

// Upload sends the files to the primary endpoint as one buffered multipart body
func (u *DocumentUploader) Upload(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writeFiles(mw, files); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	resp, err := u.client.post(ctx, u.client.uploadClient, mw.FormDataContentType(), &body, "bookings", "documents", "upload")
	if err != nil {
		return nil, err
	}

	docs, err := normalize.DecodeUploadResponse(resp.status, resp.body)
	if err != nil {
		u.client.logger.Warn("primary upload rejected",
			zap.Int("status", resp.status),
			zap.Int("files", len(files)),
			zap.Error(err),
		)
		return nil, err
	}
	return docs, nil
}

// UploadAlternate sends the files to the alternate endpoint. The body is
// streamed through a pipe instead of being assembled in memory first.
func (u *DocumentUploader) UploadAlternate(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeFiles(mw, files)
		pw.CloseWithError(err)
	}()

	resp, err := u.client.post(ctx, u.client.uploadClient, mw.FormDataContentType(), pr, "documents", "upload")
	// unblocks the writer goroutine if the request ended early
	pr.Close()
	if err != nil {
		return nil, err
	}

	docs, err := normalize.DecodeAlternateUploadResponse(resp.status, resp.body)
	if err != nil {
		u.client.logger.Warn("alternate upload rejected",
			zap.Int("status", resp.status),
			zap.Int("files", len(files)),
			zap.Error(err),
		)
		return nil, err
	}
	return docs, nil
}

// writeFiles writes every file under the shared field name and closes the form
func writeFiles(mw *multipart.Writer, files []domain.FileUpload) error {
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, quoteEscaper.Replace(f.Name)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	return mw.Close()
}

package normalize

import (
	"fmt"

	"psnrwanda/internal/domain"
)

// DecodeUploadResponse interprets a primary upload endpoint response.
//
// Success statuses are matched in order: {success, documents}, a bare array,
// {data: [...]}, a single document object. Any other JSON value yields an
// empty list; an empty or undecodable body is a ParseFailure. Error statuses
// still count as success when the body carries a document array.
func DecodeUploadResponse(status int, body []byte) ([]domain.UploadedDocument, error) {
	value, err := ParseJSON(body)

	if !isSuccess(status) {
		if err == nil {
			if arr, ok := value.([]any); ok {
				return decodeDocuments(arr), nil
			}
			if obj, ok := AsObject(value); ok {
				if docs, ok := obj.Array("documents"); ok {
					return decodeDocuments(docs), nil
				}
				if msg := obj.String("message"); msg != "" {
					return nil, domain.NewError(domain.KindServerRejected, msg)
				}
			}
		}
		return nil, domain.NewError(domain.KindServerRejected, domain.MsgUploadFailed)
	}

	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, domain.MsgUploadUnparsed, err)
	}
	if !Truthy(value) {
		return nil, domain.NewError(domain.KindParseFailure, domain.MsgUploadUnparsed)
	}

	switch v := value.(type) {
	case []any:
		return decodeDocuments(v), nil
	case map[string]any:
		obj := Object(v)
		if obj.Truthy("success") {
			if docs, ok := obj.Array("documents"); ok {
				return decodeDocuments(docs), nil
			}
		}
		if data, ok := obj.Array("data"); ok {
			return decodeDocuments(data), nil
		}
		if obj.Truthy("id") && obj.Truthy("fileName") {
			return []domain.UploadedDocument{DecodeDocument(obj)}, nil
		}
	}

	return []domain.UploadedDocument{}, nil
}

// DecodeAlternateUploadResponse interprets the alternate upload endpoint,
// which only ever answers with an array, {documents} or {data}
func DecodeAlternateUploadResponse(status int, body []byte) ([]domain.UploadedDocument, error) {
	if !isSuccess(status) {
		return nil, domain.NewError(domain.KindServerRejected, fmt.Sprintf("Upload failed with status: %d", status))
	}

	value, err := ParseJSON(body)
	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, domain.MsgUploadUnparsed, err)
	}

	if arr, ok := value.([]any); ok {
		return decodeDocuments(arr), nil
	}
	if obj, ok := AsObject(value); ok {
		if docs, ok := obj.Array("documents"); ok {
			return decodeDocuments(docs), nil
		}
		if data, ok := obj.Array("data"); ok {
			return decodeDocuments(data), nil
		}
	}
	return []domain.UploadedDocument{}, nil
}

// DecodeDocument maps one server document record
func DecodeDocument(obj Object) domain.UploadedDocument {
	return domain.UploadedDocument{
		ID:       obj.Int("id"),
		FileName: obj.String("fileName"),
		FilePath: obj.String("filePath"),
		FileType: obj.String("fileType"),
		FileSize: obj.Int("fileSize"),
	}
}

// decodeDocuments keeps non-object elements as zero documents so that the
// validity check downstream rejects the whole batch
func decodeDocuments(items []any) []domain.UploadedDocument {
	docs := make([]domain.UploadedDocument, 0, len(items))
	for _, item := range items {
		obj, ok := AsObject(item)
		if !ok {
			docs = append(docs, domain.UploadedDocument{})
			continue
		}
		docs = append(docs, DecodeDocument(obj))
	}
	return docs
}

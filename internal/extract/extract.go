// Package extract turns uploaded files into documents: it reads the file
// text and parses the optional metadata form field.
package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"unicode/utf8"

	"github.com/openkcm/retrieval-gateway/internal/datastore"
)

// FromUpload builds a document from an uploaded file and the optional
// metadata form value. Malformed metadata is not an error; the document
// falls back to a file-source metadata so an upload never fails on a bad
// sidecar field.
func FromUpload(file multipart.File, metadataField string, maxBytes int64) (datastore.Document, error) {
	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return datastore.Document{}, fmt.Errorf("reading upload: %w", err)
	}

	if int64(len(raw)) > maxBytes {
		return datastore.Document{}, fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}

	if !utf8.Valid(raw) {
		return datastore.Document{}, fmt.Errorf("upload is not valid UTF-8 text")
	}

	return datastore.Document{
		Text:     string(raw),
		Metadata: ParseMetadata(metadataField),
	}, nil
}

// ParseMetadata decodes the metadata form field. Empty or malformed input
// yields a metadata with only the file source set.
func ParseMetadata(field string) datastore.DocumentMetadata {
	metadata := datastore.DocumentMetadata{Source: datastore.SourceFile}

	if field == "" {
		return metadata
	}

	var parsed datastore.DocumentMetadata
	if err := json.Unmarshal([]byte(field), &parsed); err != nil {
		return metadata
	}

	if parsed.Source == "" {
		parsed.Source = datastore.SourceFile
	}

	return parsed
}

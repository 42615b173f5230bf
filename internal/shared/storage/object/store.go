package object

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored blob.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore defines the contract for staging and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under namespace. An empty mimeType is sniffed from the content.
	Save(ctx context.Context, namespace, fileName, mimeType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// SniffMimeType reads up to 512 bytes from r to detect its content type when
// declared is empty. The returned reader replays the sniffed bytes.
func SniffMimeType(r io.Reader, declared string) (io.Reader, string, error) {
	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", err
	}
	head := append([]byte(nil), sniff[:n]...)
	mimeType := declared
	if mimeType == "" {
		mimeType = http.DetectContentType(head)
	}
	return io.MultiReader(bytes.NewReader(head), r), mimeType, nil
}

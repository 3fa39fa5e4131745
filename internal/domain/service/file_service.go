package service

import (
	"context"
	"io"
)

// ProofStorage stores proof-of-completion images and hands back a public URL.
type ProofStorage interface {
	UploadFile(ctx context.Context, file io.Reader, contentType, objectPath string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}

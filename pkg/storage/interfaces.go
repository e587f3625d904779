package storage

import (
	"io"
	"time"
)

type StorageService interface {
	Upload(key string, reader io.Reader) error
	Delete(key string) error
	PresignDownload(key string, expires time.Duration) (string, error)
	PublicURL(key string) string
}

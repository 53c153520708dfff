package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/c4p-portal/internal/api/middleware"
	"github.com/hugh/c4p-portal/internal/storage"
)

// formFile returns the named file part, or nil when the browser sent no
// file for it. The caller must call the returned close func.
func formFile(r *http.Request, field string) (*storage.File, func(), error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(middleware.MultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, err
		}
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	if header.Filename == "" {
		_ = file.Close()
		return nil, func() {}, nil
	}

	return &storage.File{
		Name:   header.Filename,
		Size:   header.Size,
		Reader: file,
	}, func() { _ = file.Close() }, nil
}

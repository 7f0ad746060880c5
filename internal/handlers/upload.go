package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/validation"
)

// maxMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const maxMemory = 32 << 20

func parseMultipart(c *gin.Context) error {
	if c.Request.MultipartForm != nil {
		return nil
	}
	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return &validation.Error{Field: "body", Message: "expected multipart/form-data"}
		}
		return &validation.Error{Field: "body", Message: fmt.Sprintf("failed to parse multipart form: %v", err)}
	}
	return nil
}

// readUpload loads a multipart file. Files over limit are not read; their
// declared size is enough for validation to reject them.
func readUpload(fh *multipart.FileHeader, limit int64) (validation.Upload, error) {
	u := validation.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if fh.Size > limit {
		return u, nil
	}

	src, err := fh.Open()
	if err != nil {
		return u, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return u, fmt.Errorf("failed to read file data: %w", err)
	}
	u.Data = data
	u.Size = int64(len(data))
	return u, nil
}

// formFile returns the first file under field, or nil when there is none.
func formFile(c *gin.Context, field string, limit int64) (*validation.Upload, error) {
	if err := parseMultipart(c); err != nil {
		return nil, err
	}
	files := c.Request.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	u, err := readUpload(files[0], limit)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// requiredFile is formFile for fields that must be present.
func requiredFile(c *gin.Context, field string, limit int64) (validation.Upload, error) {
	u, err := formFile(c, field, limit)
	if err != nil {
		return validation.Upload{}, err
	}
	if u == nil {
		return validation.Upload{}, &validation.Error{Field: field, Message: "file is required"}
	}
	return *u, nil
}

func formFiles(c *gin.Context, field string, limit int64) ([]validation.Upload, error) {
	if err := parseMultipart(c); err != nil {
		return nil, err
	}
	headers := c.Request.MultipartForm.File[field]
	uploads := make([]validation.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh, limit)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

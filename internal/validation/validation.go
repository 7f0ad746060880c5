package validation

import (
	"fmt"
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 2000
	MaxMessageLength     = 1000
	MaxReasonLength      = 1000
	MaxReferenceImages   = 10
	MinPasswordLength    = 6
	MaxOrderImageSize    = 10 << 20
	MaxMessageImageSize  = 5 << 20
	MaxPaymentProofSize  = 5 << 20
	MaxGalleryImageSize  = 10 << 20
	MaxFinalWorkSize     = 50 << 20
)

// ImagePlaceholderContent replaces empty content on image-only messages.
const ImagePlaceholderContent = "📷 Image"

// Error is a user-facing input violation. It is returned before any store call.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newError(field, format string, args ...interface{}) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

var strict = bluemonday.StrictPolicy()

// CleanText strips markup and surrounding whitespace. Entities are decoded
// before sanitizing so encoded tags are stripped too; the result is always
// the strict policy's output, with & < > ' " escaped. CleanText is
// idempotent.
func CleanText(s string) string {
	return strings.TrimSpace(strict.Sanitize(html.UnescapeString(s)))
}

func checkLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen {
		if minLen == 1 {
			return newError(field, "is required")
		}
		return newError(field, "must be at least %d characters", minLen)
	}
	if n > maxLen {
		return newError(field, "is too long (maximum %d characters)", maxLen)
	}
	return nil
}

func Title(title string) error {
	return checkLength("title", title, 1, MaxTitleLength)
}

func Description(description string) error {
	return checkLength("description", description, 1, MaxDescriptionLength)
}

func GalleryDescription(description string) error {
	return checkLength("description", description, 0, MaxDescriptionLength)
}

func Reason(field, reason string) error {
	return checkLength(field, strings.TrimSpace(reason), 1, MaxReasonLength)
}

func Price(price decimal.Decimal) error {
	if !price.IsPositive() {
		return newError("price", "must be a positive number")
	}
	return nil
}

func Credentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return newError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return newError("email", "invalid format")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return newError("password", "must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Image checks size first, then content type, so an oversize upload always
// fails with a size error.
func Image(field string, u Upload, maxSize int64) error {
	if err := File(field, u, maxSize); err != nil {
		return err
	}
	if !strings.HasPrefix(DetectContentType(u), "image/") {
		return newError(field, "only images can be uploaded")
	}
	return nil
}

// File checks presence and size only.
func File(field string, u Upload, maxSize int64) error {
	size := u.Size
	if size == 0 {
		size = int64(len(u.Data))
	}
	if size == 0 {
		return newError(field, "file is required")
	}
	if size > maxSize {
		return newError(field, "file is too large (maximum %dMB)", maxSize>>20)
	}
	return nil
}

// DetectContentType sniffs the bytes; the declared type is used only when
// there is nothing to sniff.
func DetectContentType(u Upload) string {
	if len(u.Data) > 0 {
		return mimetype.Detect(u.Data).String()
	}
	return u.ContentType
}

// Extension returns the storage file extension for an upload, without dot.
func Extension(u Upload) string {
	if i := strings.LastIndex(u.Filename, "."); i >= 0 {
		if ext := strings.ToLower(u.Filename[i+1:]); safeExtension(ext) {
			return ext
		}
	}
	if len(u.Data) > 0 {
		if ext := mimetype.Detect(u.Data).Extension(); ext != "" {
			return strings.TrimPrefix(ext, ".")
		}
	}
	return "bin"
}

func safeExtension(ext string) bool {
	if ext == "" || len(ext) > 10 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

type OrderInput struct {
	Title       string
	Description string
	Images      []Upload
}

func Order(in OrderInput) error {
	if err := Title(in.Title); err != nil {
		return err
	}
	if err := Description(in.Description); err != nil {
		return err
	}
	if len(in.Images) > MaxReferenceImages {
		return newError("images", "maximum %d images", MaxReferenceImages)
	}
	for _, img := range in.Images {
		if err := Image("images", img, MaxOrderImageSize); err != nil {
			return err
		}
	}
	return nil
}

// Message validates chat input. image may be nil.
func Message(content string, image *Upload) error {
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return newError("content", "message is too long (maximum %d characters)", MaxMessageLength)
	}
	if image != nil {
		return Image("image", *image, MaxMessageImageSize)
	}
	if strings.TrimSpace(content) == "" {
		return newError("content", "message is empty")
	}
	return nil
}

type GalleryInput struct {
	Title       string
	Description string
	Image       Upload
}

func GalleryItem(in GalleryInput) error {
	if err := checkLength("title", strings.TrimSpace(in.Title), 1, MaxTitleLength); err != nil {
		return err
	}
	if err := GalleryDescription(in.Description); err != nil {
		return err
	}
	return Image("image", in.Image, MaxGalleryImageSize)
}

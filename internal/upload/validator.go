package upload

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// errTooLarge is returned by limitReader once more than max bytes were read.
var errTooLarge = errors.New("upload exceeds size limit")

// sniffable lists the decoded image formats accepted as real images.
var sniffable = map[string]bool{"png": true, "jpeg": true, "gif": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Validator decides whether an uploaded file may be attached to an item and
// stores it under a fresh name when it may.
type Validator struct {
	storage Storage
	allowed map[string]bool
	maxSize int64
	log     *logrus.Logger
	newName func(ext string) string
}

func NewValidator(storage Storage, allowedExtensions []string, maxSize int64, log *logrus.Logger) *Validator {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Validator{
		storage: storage,
		allowed: allowed,
		maxSize: maxSize,
		log:     log,
		newName: func(ext string) string {
			return strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
		},
	}
}

// SanitizeFilename strips directory components and anything outside
// [A-Za-z0-9._-] from a client supplied filename.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base("/" + name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// Extension returns the lower-cased extension of a sanitized filename, or
// "" when there is none.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Accept stores the upload and returns its new name. Files with a missing or
// disallowed extension are rejected before anything is written. Files that
// are written but do not decode as a png, jpeg or gif image are removed again.
func (v *Validator) Accept(ctx context.Context, r io.Reader, filename string) (string, error) {
	ext := Extension(SanitizeFilename(filename))
	if ext == "" || !v.allowed[ext] {
		return "", apperr.Validation(fmt.Sprintf("File type not allowed, use one of: %s", v.allowedList()))
	}

	name := v.newName(ext)
	if err := v.storage.Save(ctx, name, &limitReader{r: r, remaining: v.maxSize + 1}); err != nil {
		if errors.Is(err, errTooLarge) {
			return "", apperr.TooLarge("Uploaded file is too large")
		}
		return "", apperr.Internal("Failed to store image", err)
	}

	format, err := v.sniff(ctx, name)
	if err != nil || !sniffable[format] {
		if rmErr := v.storage.Remove(ctx, name); rmErr != nil && v.log != nil {
			v.log.WithError(rmErr).WithField("image", name).Error("failed to remove rejected upload")
		}
		if err != nil {
			return "", apperr.Internal("Failed to store image", err)
		}
		return "", apperr.InvalidContent("Uploaded file is not a valid image")
	}

	return name, nil
}

// sniff decodes the header of the stored file and returns its format. A file
// that does not decode yields an empty format; err is only set when the
// storage could not be read.
func (v *Validator) sniff(ctx context.Context, name string) (string, error) {
	rc, err := v.storage.Open(ctx, name)
	if err != nil {
		return "", errors.Wrap(err, "reading stored upload")
	}
	defer rc.Close()

	_, format, err := image.DecodeConfig(rc)
	if err != nil {
		return "", nil
	}
	return format, nil
}

// Remove deletes a previously accepted image, logging instead of failing.
func (v *Validator) Remove(ctx context.Context, name string) {
	if err := v.storage.Remove(ctx, name); err != nil && v.log != nil {
		v.log.WithError(err).WithField("image", name).Warn("failed to remove image")
	}
}

func (v *Validator) allowedList() string {
	exts := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// limitReader fails with errTooLarge as soon as the underlying reader has
// produced remaining bytes, so one byte over the limit is enough to abort.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining <= 0 {
		return n, errTooLarge
	}
	return n, err
}

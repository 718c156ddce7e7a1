// Package attach stores uploaded receipt files on the local filesystem and
// hands back opaque references for the ledger to carry. A reference is a
// bare filename; the directory layout is this package's business.
package attach

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pettycash/internal/core"
)

var (
	ErrNotFound    = errors.New("attachment not found")
	ErrBadRef      = errors.New("invalid attachment reference")
	ErrEmptyFile   = errors.New("empty attachment")
	ErrUnsupported = errors.New("unsupported attachment type")
)

// allowedExtensions are the upload types accepted from the entry form.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
}

// Store saves attachments under a single base directory.
type Store struct {
	dir string
}

// NewStore creates the base directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the uploaded file and returns its reference. The reference is
// built from the entry date and a slug of the remark, so exported archives
// stay readable; collisions get a numeric suffix.
func (s *Store) Save(r io.Reader, originalName string, date core.TxDate, remark string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	base := refBase(date, remark)
	ref := base + ext
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, ref)); errors.Is(err, os.ErrNotExist) {
			break
		}
		ref = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if written == 0 {
		os.Remove(f.Name())
		return "", ErrEmptyFile
	}
	return ref, nil
}

// Open returns the attachment contents for serving or archiving. The caller
// closes the reader.
func (s *Store) Open(ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// Remove deletes an attachment. A missing file is not an error; the row it
// belonged to may have been deleted twice.
func (s *Store) Remove(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// resolve rejects references that would escape the base directory.
func (s *Store) resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadRef, ref)
	}
	return filepath.Join(s.dir, ref), nil
}

func refBase(date core.TxDate, remark string) string {
	day := "undated"
	if !date.IsEmpty() {
		day = date.Format("20060102")
	}
	slug := slugify(remark)
	if slug == "" {
		slug = "attachment"
	}
	return day + "_" + slug
}

// slugify keeps letters and digits, folds everything else into single
// underscores, and caps the length so filenames stay manageable.
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}

package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"pettycash/internal/attach"
)

// AttachmentOpener resolves an attachment reference to its contents. The
// attach.Store satisfies it.
type AttachmentOpener interface {
	Open(ref string) (io.ReadCloser, error)
}

// WriteAttachmentsZip archives every attachment referenced by the report's
// rows. Rows without attachments are skipped; references whose files have
// gone missing are logged and skipped rather than failing the archive.
// Returns the number of files written.
func WriteAttachmentsZip(w io.Writer, r Report, opener AttachmentOpener) (int, error) {
	zw := zip.NewWriter(w)
	count := 0
	for _, row := range r.Cashbook.Rows {
		ref := row.AttachmentRef
		if ref == "" {
			continue
		}
		f, err := opener.Open(ref)
		if errors.Is(err, attach.ErrNotFound) || errors.Is(err, attach.ErrBadRef) {
			slog.Warn("Skipping unresolvable attachment", "ref", ref, "error", err)
			continue
		}
		if err != nil {
			zw.Close()
			return count, fmt.Errorf("open attachment %s: %w", ref, err)
		}

		entry, err := zw.Create(ref)
		if err != nil {
			f.Close()
			zw.Close()
			return count, fmt.Errorf("create zip entry %s: %w", ref, err)
		}
		if _, err := io.Copy(entry, f); err != nil {
			f.Close()
			zw.Close()
			return count, fmt.Errorf("write zip entry %s: %w", ref, err)
		}
		f.Close()
		count++
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finalize zip: %w", err)
	}
	return count, nil
}

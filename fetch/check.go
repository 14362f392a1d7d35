package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
)

// verify checks a downloaded file against its declared post-condition.
func verify(path string, check models.PostCondition) error {
	switch check {
	case models.PostConditionNone, "":
		return nil
	case models.PostConditionBinary:
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return errors.New("downloaded file is empty")
		}
		return nil
	case models.PostConditionArchive:
		return verifyArchive(path)
	default:
		return fmt.Errorf("unknown post-condition %q", check)
	}
}

// verifyArchive walks every entry of a zip or gzipped tar archive so a
// truncated download is caught before the file is moved into place.
func verifyArchive(path string) error {
	if strings.HasSuffix(path, ".zip") || isZip(path) {
		r, err := zip.OpenReader(path)
		if err != nil {
			return fmt.Errorf("invalid zip archive: %w", err)
		}
		defer r.Close()
		if len(r.File) == 0 {
			return errors.New("zip archive is empty")
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("invalid gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		_, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid tar archive: %w", err)
		}
	}
}

func isZip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	return string(magic) == "PK\x03\x04"
}

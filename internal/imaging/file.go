package imaging

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/flourish/internal/errors"
)

// LoadFile builds an Upload from a path on disk.
// Files over maxBytes are not read; Normalize rejects them from Size alone.
func LoadFile(path string, maxBytes int64) (*Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewValidation("no file provided: " + path + " does not exist")
		}
		return nil, errors.NewInternal(err)
	}
	if info.IsDir() {
		return nil, errors.NewValidation(path + " is a directory")
	}

	u := &Upload{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mimeFromExt(path),
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return u, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	u.Data = data

	// Content sniffing wins over the extension when it recognizes an image.
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") || u.MIMEType == "" {
		u.MIMEType = sniffed
	}
	return u, nil
}

func mimeFromExt(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Upload copies a local file into the store under the given logical folder
// and returns the stored path.
func Upload(ctx context.Context, store FileStore, localPath, folder string) (string, error) {
	in, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := path.Join(folder, filepath.Base(localPath))
	w, err := store.Write(ctx, dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// Download copies a stored file to a local path, creating parent
// directories as needed.
func Download(ctx context.Context, store FileStore, storedPath, localPath string) error {
	r, err := store.Read(ctx, storedPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var ErrNotImage = errors.New("uploaded file is not an image")

// LocalStore 将封面等二进制文件保存到本地上传目录。
// 返回的路径是相对于上传根目录的，直接存入数据库。
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at the upload directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Put decodes the payload to make sure it is an image, then writes it under
// dir with a date plus uuid filename and returns the relative path.
func (s *LocalStore) Put(dir, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotImage
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = "." + format
	}

	targetDir := filepath.Join(s.root, dir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", err
	}

	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(targetDir, newFilename), data, 0o644); err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(dir, newFilename)), nil
}

// Delete removes a previously stored blob. A missing file is not an error.
func (s *LocalStore) Delete(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

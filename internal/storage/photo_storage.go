package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// PhotoStorage отвечает за файловое хранилище изображений обращений.
// С точки зрения движка жизненного цикла это best-effort коллаборатор:
// ошибка сохранения оставляет image_url пустым, но не отменяет создание.
type PhotoStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath, baseURL string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(filepath.Join(rootPath, "reports"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// SaveReportImage проверяет магические байты, сохраняет изображение и
// возвращает публичный URL. Тип файла определяется по содержимому,
// а не по расширению из запроса.
func (s *PhotoStorage) SaveReportImage(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(image) == 0 {
		return "", fmt.Errorf("storage: пустое изображение")
	}

	if int64(len(image)) > s.maxUploadBytes {
		return "", fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	kind, err := filetype.Match(image)
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("storage: не удалось определить тип файла")
	}
	if !strings.HasPrefix(kind.MIME.Value, "image/") {
		return "", fmt.Errorf("storage: допускаются только изображения, получен %s", kind.MIME.Value)
	}

	fileName := fmt.Sprintf("%s_%d.%s", uuid.NewString(), time.Now().UnixNano(), kind.Extension)
	relative := filepath.Join("reports", fileName)
	targetPath := filepath.Join(s.rootPath, relative)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}

	if _, err := io.Copy(f, bytes.NewReader(image)); err != nil {
		f.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return s.baseURL + "/" + filepath.ToSlash(relative), nil
}

// Delete удаляет изображение по публичному URL, который вернул
// SaveReportImage. Отсутствие файла ошибкой не считается.
func (s *PhotoStorage) Delete(ctx context.Context, publicURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	relative := strings.TrimPrefix(publicURL, s.baseURL+"/")
	target := filepath.Join(s.rootPath, filepath.Clean(relative))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// Package corpus manages the local knowledge store: validated uploads of
// research documents that the "local" literature source retrieves from.
// Files live in MinIO as the durable copy and are mirrored into the corpus
// directory the filesystem fetcher scans.
package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	miniostore "github.com/turtacn/ChemScribe/internal/infrastructure/storage/minio"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// objectPrefix namespaces corpus files inside the bucket.
const objectPrefix = "corpus/"

// FileInfo describes one stored corpus document.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Service defines the knowledge-store operations.
type Service interface {
	// Upload validates and stores one document.
	Upload(ctx context.Context, filename string, size int64, r io.Reader) (*FileInfo, error)

	// List returns the stored documents, sorted by name.
	List(ctx context.Context) ([]FileInfo, error)

	// Remove deletes one document from the store and the mirror directory.
	Remove(ctx context.Context, filename string) error
}

type serviceImpl struct {
	store     miniostore.ObjectStore
	bucket    string
	corpusDir string
	maxSize   int64
	allowed   map[string]struct{}
	logger    logging.Logger
}

// NewService constructs the corpus service.  store may be nil for deployments
// that keep the knowledge store purely on the local filesystem.
func NewService(store miniostore.ObjectStore, bucket, corpusDir string, upload config.UploadConfig, logger logging.Logger) Service {
	allowed := make(map[string]struct{}, len(upload.AllowedExts))
	for _, ext := range upload.AllowedExts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &serviceImpl{
		store:     store,
		bucket:    bucket,
		corpusDir: corpusDir,
		maxSize:   upload.MaxSizeBytes,
		allowed:   allowed,
		logger:    logger.Named("corpus"),
	}
}

func (s *serviceImpl) Upload(ctx context.Context, filename string, size int64, r io.Reader) (*FileInfo, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperrors.InvalidParam("filename cannot be empty")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := s.allowed[ext]; !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeUploadInvalidType,
			"file type %q is not accepted", ext).
			WithDetail("allowed=" + strings.Join(s.allowedList(), ","))
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, apperrors.Newf(apperrors.ErrCodeUploadTooLarge,
			"file exceeds the %d byte limit", s.maxSize).
			WithDetail(fmt.Sprintf("file=%s size=%d", name, size))
	}

	// Read through a hard cap so a lying Content-Length cannot bypass the
	// limit.
	limit := io.Reader(r)
	if s.maxSize > 0 {
		limit = io.LimitReader(r, s.maxSize+1)
	}
	data, err := io.ReadAll(limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed, "failed to read upload")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, apperrors.Newf(apperrors.ErrCodeUploadTooLarge,
			"file exceeds the %d byte limit", s.maxSize).
			WithDetail("file=" + name)
	}

	if s.store != nil {
		if err := s.store.Put(ctx, s.bucket, objectPrefix+name, data, contentTypeFor(ext)); err != nil {
			return nil, err
		}
	}
	if err := s.mirror(name, data); err != nil {
		return nil, err
	}

	s.logger.Info("corpus file stored",
		logging.String("file", name), logging.Int64("size", int64(len(data))))
	return &FileInfo{Name: name, Size: int64(len(data))}, nil
}

func (s *serviceImpl) List(ctx context.Context) ([]FileInfo, error) {
	if s.store != nil {
		objs, err := s.store.List(ctx, s.bucket, objectPrefix)
		if err != nil {
			return nil, err
		}
		infos := make([]FileInfo, 0, len(objs))
		for _, o := range objs {
			infos = append(infos, FileInfo{
				Name: strings.TrimPrefix(o.Key, objectPrefix),
				Size: o.Size,
			})
		}
		return infos, nil
	}
	return s.listLocal()
}

func (s *serviceImpl) Remove(ctx context.Context, filename string) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." {
		return apperrors.InvalidParam("filename cannot be empty")
	}
	if s.store != nil {
		if err := s.store.Remove(ctx, s.bucket, objectPrefix+name); err != nil {
			return err
		}
	}
	if s.corpusDir != "" {
		if err := os.Remove(filepath.Join(s.corpusDir, name)); err != nil && !os.IsNotExist(err) {
			return apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed, "failed to remove mirrored file")
		}
	}
	return nil
}

// mirror writes the document into the directory the local fetcher scans.
func (s *serviceImpl) mirror(name string, data []byte) error {
	if s.corpusDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.corpusDir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed, "failed to create corpus directory")
	}
	path := filepath.Join(s.corpusDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed, "failed to mirror corpus file")
	}
	return nil
}

func (s *serviceImpl) listLocal() ([]FileInfo, error) {
	if s.corpusDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.corpusDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed, "failed to read corpus directory")
	}
	var infos []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := s.allowed[ext]; !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, FileInfo{Name: e.Name(), Size: fi.Size()})
	}
	return infos, nil
}

func (s *serviceImpl) allowedList() []string {
	exts := make([]string, 0, len(s.allowed))
	for ext := range s.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain"
	}
}

// Package assets materializes provider images into the local image cache
// and resolves the references stored on movies, series and episodes.
package assets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/spf13/afero"
)

// Reference schemes. Only file references point into the cache and are
// ever deleted.
const (
	FileScheme     = "file://"
	ResourceScheme = "resource://"
)

// Cache stores downloaded images under per kind directories
type Cache struct {
	fs         afero.Fs
	moviesDir  string
	seriesDir  string
	prefix     string
	baseURL    string
	retries    int
	retryDelay time.Duration
	client     *http.Client
	processor  *ImageProcessor
	logger     hclog.Logger
}

var _ models.ImageResolver = (*Cache)(nil)

// Option configures a Cache
type Option func(*Cache)

// WithHTTPClient replaces the download client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithRetryDelay sets the base delay between download attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Cache) { c.retryDelay = d }
}

// NewCache creates an image cache on the given filesystem
func NewCache(fs afero.Fs, cfg config.AssetConfig, logger hclog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.DownloadRetries
	if retries <= 0 {
		retries = 1
	}

	c := &Cache{
		fs:         fs,
		moviesDir:  cfg.MoviesDir,
		seriesDir:  cfg.SeriesDir,
		prefix:     strings.TrimRight(cfg.ResourcePrefix, "/"),
		baseURL:    strings.TrimRight(cfg.ImageBaseURL, "/"),
		retries:    retries,
		retryDelay: 200 * time.Millisecond,
		client:     &http.Client{Timeout: timeout},
		processor:  NewImageProcessor(),
		logger:     logger.Named("assets"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PosterPlaceholder is the bundled poster used when none is available
func (c *Cache) PosterPlaceholder() string {
	return ResourceScheme + c.prefix + "/blank_poster.jpg"
}

// StillPlaceholder is the bundled still used when none is available
func (c *Cache) StillPlaceholder() string {
	return ResourceScheme + c.prefix + "/blank_still.jpg"
}

// Poster returns a reference to the cached poster, downloading it if needed.
// Missing or undownloadable posters resolve to the placeholder.
func (c *Cache) Poster(ctx context.Context, kind models.Kind, remotePath string) string {
	if remotePath == "" {
		return c.PosterPlaceholder()
	}
	ref, err := c.materialize(ctx, c.posterDir(kind), remotePath, nil)
	if err != nil {
		c.logger.Warn("failed to cache poster", "kind", kind, "path", remotePath, "error", err)
		return c.PosterPlaceholder()
	}
	return ref
}

// Backdrop returns a reference to the cached, blurred backdrop. There is no
// placeholder: failures resolve to an empty reference.
func (c *Cache) Backdrop(ctx context.Context, kind models.Kind, remotePath string) string {
	if remotePath == "" {
		return ""
	}
	ref, err := c.materialize(ctx, c.backdropDir(kind), remotePath, c.processor.Blur)
	if err != nil {
		c.logger.Warn("failed to cache backdrop", "kind", kind, "path", remotePath, "error", err)
		return ""
	}
	return ref
}

// SeasonPoster returns a reference to a cached season poster
func (c *Cache) SeasonPoster(ctx context.Context, showID string, season int, remotePath string) string {
	if remotePath == "" {
		return c.PosterPlaceholder()
	}
	ref, err := c.materialize(ctx, c.seasonDir(showID, season), remotePath, nil)
	if err != nil {
		c.logger.Warn("failed to cache season poster", "show_id", showID, "season", season, "error", err)
		return c.PosterPlaceholder()
	}
	return ref
}

// Still returns a reference to a cached episode still, resized for display
func (c *Cache) Still(ctx context.Context, showID string, season int, remotePath string) string {
	if remotePath == "" {
		return c.StillPlaceholder()
	}
	ref, err := c.materialize(ctx, c.seasonDir(showID, season), remotePath, c.processor.ResizeStill)
	if err != nil {
		c.logger.Warn("failed to cache still", "show_id", showID, "season", season, "error", err)
		return c.StillPlaceholder()
	}
	return ref
}

// Save stores a user supplied image for a manually added title and returns
// its reference. role names the image, e.g. poster or backdrop.
func (c *Cache) Save(kind models.Kind, id, role string, data []byte) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", apperrors.NewValidationError("invalid id for image: "+id, "id")
	}

	var (
		out []byte
		err error
		dir = c.posterDir(kind)
	)
	if role == "backdrop" {
		dir = c.backdropDir(kind)
		out, err = c.processor.Blur(data)
	} else {
		out, err = c.processor.Normalize(data)
	}
	if err != nil {
		return "", apperrors.NewValidationError("unsupported image: "+err.Error(), "data")
	}

	full := filepath.Join(dir, id+"-"+role+"-"+uuid.NewString()[:8]+".jpg")
	if err := c.writeFile(full, out); err != nil {
		return "", err
	}
	return FileScheme + full, nil
}

// IsLightPoster reports whether the badge corner of a cached poster is
// light. Placeholders and unreadable files count as dark.
func (c *Cache) IsLightPoster(ref string) bool {
	p, ok := PathFromRef(ref)
	if !ok {
		return false
	}
	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		return false
	}
	img, err := c.processor.Decode(data)
	if err != nil {
		c.logger.Debug("failed to decode poster for color", "path", p, "error", err)
		return false
	}
	return c.processor.BadgeLuminance(img) > 0.5
}

// Remove deletes a cached file. Non file references are ignored.
func (c *Cache) Remove(ref string) error {
	p, ok := PathFromRef(ref)
	if !ok {
		return nil
	}
	if err := c.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cached image: %w", err)
	}
	return nil
}

// RemoveSeriesDir deletes every cached season poster and still of a series
func (c *Cache) RemoveSeriesDir(showID string) error {
	if showID == "" || strings.ContainsAny(showID, `/\`) || showID == ".." {
		return apperrors.NewValidationError("invalid series id: "+showID, "id")
	}
	if err := c.fs.RemoveAll(filepath.Join(c.seriesDir, showID)); err != nil {
		return fmt.Errorf("failed to remove series image directory: %w", err)
	}
	return nil
}

// IsFileRef reports whether the reference points into the local cache
func IsFileRef(ref string) bool {
	return strings.HasPrefix(ref, FileScheme)
}

// PathFromRef returns the filesystem path of a file reference
func PathFromRef(ref string) (string, bool) {
	if !IsFileRef(ref) {
		return "", false
	}
	return strings.TrimPrefix(ref, FileScheme), true
}

// materialize returns the cached copy of remotePath in dir, downloading and
// transforming it first when absent
func (c *Cache) materialize(ctx context.Context, dir, remotePath string, transform func([]byte) ([]byte, error)) (string, error) {
	name := strings.TrimSuffix(path.Base(remotePath), path.Ext(remotePath)) + ".jpg"
	full := filepath.Join(dir, name)

	if exists, err := afero.Exists(c.fs, full); err == nil && exists {
		return FileScheme + full, nil
	}

	data, err := c.download(ctx, remotePath)
	if err != nil {
		return "", err
	}
	if transform != nil {
		if data, err = transform(data); err != nil {
			return "", err
		}
	}

	if err := c.writeFile(full, data); err != nil {
		return "", err
	}
	return FileScheme + full, nil
}

// writeFile writes through a uniquely named temp file and renames it into
// place, so concurrent writers of the same image never leave a torn file
func (c *Cache) writeFile(full string, data []byte) error {
	if err := c.fs.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	tempPath := full + "." + uuid.NewString() + ".tmp"
	if err := afero.WriteFile(c.fs, tempPath, data, 0644); err != nil {
		_ = c.fs.Remove(tempPath)
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := c.fs.Rename(tempPath, full); err != nil {
		_ = c.fs.Remove(tempPath)
		return fmt.Errorf("failed to move image to final location: %w", err)
	}
	return nil
}

func (c *Cache) kindDir(kind models.Kind) string {
	if kind == models.KindSeries {
		return c.seriesDir
	}
	return c.moviesDir
}

func (c *Cache) posterDir(kind models.Kind) string {
	return filepath.Join(c.kindDir(kind), "posters")
}

func (c *Cache) backdropDir(kind models.Kind) string {
	return filepath.Join(c.kindDir(kind), "backdrops")
}

func (c *Cache) seasonDir(showID string, season int) string {
	return filepath.Join(c.seriesDir, showID, strconv.Itoa(season))
}

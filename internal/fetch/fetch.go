// Package fetch acquires remote dataset archives.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Fetcher copies the resource at src to the local file dest.
type Fetcher interface {
	Fetch(ctx context.Context, src, dest string) error
}

// Mux dispatches on the URL scheme: http and https are downloaded directly,
// s3 goes through the configured object store and file copies a local file.
type Mux struct {
	HTTP *HTTPFetcher
	S3   *S3Fetcher
}

// New creates a Mux. The object store client is only created when an s3://
// URL is fetched.
func New(store models.ObjectStoreConfig) *Mux {
	return &Mux{
		HTTP: &HTTPFetcher{Client: http.DefaultClient},
		S3:   &S3Fetcher{Config: store},
	}
}

func (m *Mux) Fetch(ctx context.Context, src, dest string) error {
	u, err := url.Parse(src)
	if err != nil {
		return fmt.Errorf("parsing source url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return m.HTTP.Fetch(ctx, src, dest)
	case "s3":
		return m.S3.Fetch(ctx, src, dest)
	case "file":
		return writeAtomic(dest, func(w io.Writer) error {
			f, err := os.Open(u.Path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(w, f)
			return err
		})
	default:
		return fmt.Errorf("unsupported source url scheme %q", u.Scheme)
	}
}

// HTTPFetcher downloads http and https URLs.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: HTTP %d", src, resp.StatusCode)
	}

	return writeAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
}

// S3Fetcher downloads s3://bucket/key URLs from an S3 compatible store.
type S3Fetcher struct {
	Config models.ObjectStoreConfig

	once   sync.Once
	client *minio.Client
	err    error
}

func (f *S3Fetcher) connect() (*minio.Client, error) {
	f.once.Do(func() {
		if f.Config.Endpoint == "" {
			f.err = fmt.Errorf("object store endpoint is not configured")
			return
		}
		f.client, f.err = minio.New(f.Config.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(f.Config.AccessKey, f.Config.SecretKey, ""),
			Secure: f.Config.UseSSL,
			Region: f.Config.Region,
		})
	})
	return f.client, f.err
}

func (f *S3Fetcher) Fetch(ctx context.Context, src, dest string) error {
	bucket, key, err := ParseS3URL(src)
	if err != nil {
		return err
	}
	client, err := f.connect()
	if err != nil {
		return fmt.Errorf("connecting to object store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := client.FGetObject(ctx, bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetching %s: %w", src, err)
	}
	return nil
}

// ParseS3URL splits s3://bucket/key into bucket and object key.
func ParseS3URL(src string) (bucket, key string, err error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("parsing source url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 url: %s", src)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs a bucket and a key: %s", src)
	}
	return u.Host, key, nil
}

// writeAtomic writes dest through a temporary file in the same directory so
// an interrupted download never leaves a file at dest.
func writeAtomic(dest string, write func(io.Writer) error) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// DryFetcher prints what would be fetched and creates nothing.
type DryFetcher struct {
	mu  sync.Mutex
	Out io.Writer
}

func (f *DryFetcher) Fetch(_ context.Context, src, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.Out, "fetch %s > %s\n", src, dest)
	return nil
}

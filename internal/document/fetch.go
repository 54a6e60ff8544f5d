package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrTooLarge is returned by fetchers when a payload exceeds the size limit.
var ErrTooLarge = errors.New("payload exceeds size limit")

// Payload is the raw content of a document source.
type Payload struct {
	Data        []byte
	ContentType string
}

// Fetcher retrieves the raw bytes behind a document source.
type Fetcher interface {
	Fetch(ctx context.Context, src string) (*Payload, error)
}

// StatusError reports a non-success HTTP status from a remote source.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status: %s", e.Status)
}

// Router dispatches sources to a fetcher by URL scheme. Sources without a
// scheme are treated as local file paths.
type Router struct {
	File Fetcher
	HTTP Fetcher
	S3   Fetcher
}

func (r *Router) Fetch(ctx context.Context, src string) (*Payload, error) {
	var f Fetcher
	switch scheme(src) {
	case "http", "https":
		f = r.HTTP
	case "s3":
		f = r.S3
	case "", "file":
		f = r.File
	}
	if f == nil {
		return nil, fmt.Errorf("no fetcher configured for source: %s", src)
	}
	return f.Fetch(ctx, src)
}

func scheme(src string) string {
	u, err := url.Parse(src)
	if err != nil || len(u.Scheme) < 2 {
		// Windows drive letters parse as one-letter schemes.
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// FileFetcher reads documents from the local file system, restricted to
// the configured directory.
type FileFetcher struct {
	paths   *PathValidator
	maxSize int64
}

// NewFileFetcher creates a fetcher rooted at dir.
func NewFileFetcher(dir string, maxSize int64) (*FileFetcher, error) {
	paths, err := NewPathValidator(dir)
	if err != nil {
		return nil, err
	}
	return &FileFetcher{paths: paths, maxSize: maxSize}, nil
}

func (f *FileFetcher) Fetch(_ context.Context, src string) (*Payload, error) {
	path := strings.TrimPrefix(src, "file://")
	path, err := f.paths.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	if f.maxSize > 0 && info.Size() > f.maxSize {
		return nil, fmt.Errorf("file %s is %d bytes: %w", path, info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &Payload{
		Data:        data,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
	}, nil
}

// HTTPFetcher downloads documents over HTTP(S).
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src string) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid document url: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := readLimited(resp.Body, f.maxSize)
	if err != nil {
		return nil, err
	}
	return &Payload{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// S3API is the subset of the S3 client used to fetch objects.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the S3 client behind S3Fetcher.
type S3Options struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewS3Client builds an S3 client from static options.
func NewS3Client(opts S3Options) *s3.Client {
	return s3.New(s3.Options{
		Region:       opts.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		BaseEndpoint: endpointOrNil(opts.Endpoint),
		UsePathStyle: opts.UsePathStyle,
	})
}

func endpointOrNil(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}

// S3Fetcher reads documents addressed as s3://bucket/key.
type S3Fetcher struct {
	client  S3API
	maxSize int64
}

// NewS3Fetcher wraps an S3 client.
func NewS3Fetcher(client S3API, maxSize int64) *S3Fetcher {
	return &S3Fetcher{client: client, maxSize: maxSize}
}

func (f *S3Fetcher) Fetch(ctx context.Context, src string) (*Payload, error) {
	bucket, key, err := parseS3URL(src)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body, f.maxSize)
	if err != nil {
		return nil, err
	}
	return &Payload{Data: data, ContentType: aws.ToString(out.ContentType)}, nil
}

func parseS3URL(src string) (bucket, key string, err error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url: %w", err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %s", src)
	}
	return bucket, key, nil
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("more than %d bytes: %w", maxSize, ErrTooLarge)
	}
	return data, nil
}

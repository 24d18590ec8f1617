package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/schema"
)

// ObjectGetter is the part of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the client built on first S3 access. Credentials
// always come from the default AWS chain.
type S3Options struct {
	Region    string
	Endpoint  string // custom endpoint, e.g. MinIO
	PathStyle bool
}

// Loader reads locations into frames.
type Loader struct {
	s3Opts S3Options

	mu     sync.Mutex
	client ObjectGetter
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithS3Client sets the S3 client instead of building one from the
// default AWS configuration.
func WithS3Client(c ObjectGetter) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithS3Options sets region and endpoint for the default client.
func WithS3Options(o S3Options) LoaderOption {
	return func(l *Loader) { l.s3Opts = o }
}

// NewLoader returns a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLoader = NewLoader()

// Load reads loc with a loader using the default AWS configuration.
func Load(ctx context.Context, loc Location) (*engine.Frame, error) {
	return defaultLoader.Load(ctx, loc)
}

// Load reads and decodes loc. A missing file or object is a *NotFoundError.
func (l *Loader) Load(ctx context.Context, loc Location) (*engine.Frame, error) {
	frame, _, err := l.load(ctx, loc)
	return frame, err
}

// Catalog loads loc and describes its columns. CSV sources keep the raw
// type detection (booleans, hierarchies); Parquet sources are inspected
// from their typed columns.
func (l *Loader) Catalog(ctx context.Context, loc Location) (*schema.Catalog, error) {
	frame, catalog, err := l.load(ctx, loc)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return schema.Inspect(frame, loc.Base()), nil
	}
	catalog.Name = loc.Base()
	catalog.DiscoveredFrom = loc.String()
	if s, err := schema.Detect(frame); err == nil {
		catalog.Profile = s.Profile
	}
	return catalog, nil
}

func (l *Loader) load(ctx context.Context, loc Location) (*engine.Frame, *schema.Catalog, error) {
	data, err := l.read(ctx, loc)
	if err != nil {
		return nil, nil, err
	}

	var (
		frame   *engine.Frame
		catalog *schema.Catalog
	)
	switch loc.Format() {
	case FormatParquet:
		frame, err = DecodeParquet(bytes.NewReader(data), int64(len(data)))
	default:
		frame, catalog, err = DecodeCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", loc, err)
	}
	logger.Infof("📂 lens: loaded %d records with %d columns from %s", frame.Len(), len(frame.Columns()), loc)
	return frame, catalog, nil
}

func (l *Loader) read(ctx context.Context, loc Location) ([]byte, error) {
	if loc.Scheme == SchemeS3 {
		return l.readS3(ctx, loc)
	}
	data, err := os.ReadFile(loc.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Location: loc, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}

func (l *Loader) readS3(ctx context.Context, loc Location) ([]byte, error) {
	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, &NotFoundError{Location: loc, Err: err}
		}
		return nil, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}

func (l *Loader) s3Client(ctx context.Context) (ObjectGetter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if l.s3Opts.Region != "" {
		opts = append(opts, awsconfig.WithRegion(l.s3Opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	l.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if l.s3Opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(l.s3Opts.Endpoint)
		}
		o.UsePathStyle = l.s3Opts.PathStyle
	})
	return l.client, nil
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}
	var resp *awshttp.ResponseError
	return errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound
}

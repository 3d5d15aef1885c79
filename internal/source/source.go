// Package source fetches input files from the local disk, Google Cloud
// Storage (gs://bucket/object) or Amazon S3 (s3://bucket/key).
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// Scheme identifies where a file lives.
type Scheme string

const (
	SchemeLocal Scheme = "file"
	SchemeGCS   Scheme = "gs"
	SchemeS3    Scheme = "s3"
)

// Location is a parsed input URI.
type Location struct {
	Scheme Scheme
	Bucket string
	// Key is the object key for remote schemes and the file path for local ones.
	Key string
}

// Name is the base name of the location, which carries the extension hint.
func (l Location) Name() string {
	if l.Scheme == SchemeLocal {
		return filepath.Base(l.Key)
	}
	return path.Base(l.Key)
}

func (l Location) String() string {
	if l.Scheme == SchemeLocal {
		return l.Key
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// File is one fetched input. Err is set by OpenAll when the fetch failed.
type File struct {
	Name string
	URI  string
	Data []byte
	Err  error
}

// Parse splits uri into a Location. Anything without a scheme is a local path.
func Parse(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("empty input location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeLocal, Key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid input location %q: %w", uri, err)
	}

	switch Scheme(strings.ToLower(u.Scheme)) {
	case SchemeLocal:
		p := u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = "//" + u.Host + u.Path
		}
		return Location{Scheme: SchemeLocal, Key: p}, nil
	case SchemeGCS, SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("%s location needs a bucket and an object: %q", u.Scheme, uri)
		}
		return Location{Scheme: Scheme(strings.ToLower(u.Scheme)), Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, uri)
	}
}

// Fetcher reads one remote object.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, bucket, key string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	return f(ctx, bucket, key)
}

// Opener resolves locations to files. Nil fetchers use the cloud SDK
// defaults with credentials from the environment.
type Opener struct {
	GCS    Fetcher
	S3     Fetcher
	logger logger.Logger
}

// NewOpener creates an Opener with the SDK-backed fetchers.
func NewOpener() *Opener {
	return &Opener{
		GCS:    FetcherFunc(fetchGCS),
		S3:     FetcherFunc(fetchS3),
		logger: logger.GetGlobalLogger().WithComponent("source"),
	}
}

// Open fetches uri with the default Opener.
func Open(ctx context.Context, uri string) (*File, error) {
	return NewOpener().Open(ctx, uri)
}

// Open fetches one input.
func (o *Opener) Open(ctx context.Context, uri string) (*File, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "input", uri, err).
			WithSuggestion("use a local path, gs://bucket/object or s3://bucket/key")
	}

	log := o.log().WithFields(logger.Fields{"uri": loc.String(), "scheme": loc.Scheme})

	var data []byte
	switch loc.Scheme {
	case SchemeLocal:
		data, err = readLocal(loc.Key)
		if err != nil {
			return nil, err
		}
	case SchemeGCS:
		data, err = o.fetch(ctx, o.GCS, loc)
	case SchemeS3:
		data, err = o.fetch(ctx, o.S3, loc)
	}
	if err != nil {
		log.WithError(err).Warn("Could not fetch input")
		return nil, errors.SourceError(loc.String(), err)
	}

	log.WithField("bytes", len(data)).Debug("Fetched input")
	return &File{Name: loc.Name(), URI: loc.String(), Data: data}, nil
}

// OpenAll fetches every uri in order. A failed fetch does not stop the
// others; its File carries the error and no data.
func (o *Opener) OpenAll(ctx context.Context, uris []string) []*File {
	files := make([]*File, 0, len(uris))
	for _, uri := range uris {
		f, err := o.Open(ctx, uri)
		if err != nil {
			f = failedFile(uri, err)
		}
		files = append(files, f)
	}
	return files
}

func failedFile(uri string, err error) *File {
	f := &File{Name: uri, URI: uri, Err: err}
	if loc, perr := Parse(uri); perr == nil {
		f.Name, f.URI = loc.Name(), loc.String()
	}
	return f
}

func (o *Opener) fetch(ctx context.Context, f Fetcher, loc Location) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", loc.Scheme)
	}
	return f.Fetch(ctx, loc.Bucket, loc.Key)
}

func (o *Opener) log() logger.Logger {
	if o.logger == nil {
		return logger.GetGlobalLogger().WithComponent("source")
	}
	return o.logger
}

func readLocal(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	switch {
	case err == nil:
		return data, nil
	case os.IsNotExist(err):
		return nil, errors.FileError(errors.CodeFileNotFound, p, err)
	case os.IsPermission(err):
		return nil, errors.FileError(errors.CodeFilePermission, p, err)
	default:
		return nil, errors.FileError(errors.CodeFileCorrupted, p, err)
	}
}

func fetchGCS(ctx context.Context, bucket, key string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	out, err := s3.NewFromConfig(cfg).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get S3 object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read S3 object: %w", err)
	}
	return data, nil
}

/*
Copyright (C) 2026  Flatscan Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3-backed source for a deployment's equivalent
// paths; it is set once at process start, mirroring the factory-holds-creds
// shape the source engine uses for its own S3 backend.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
}

var defaultS3Source = &s3Source{}

// s3Source implements fileSource for "s3://bucket/key" equivalent paths,
// lazily building a client on first use the same way the source engine's
// S3Storage.ensureOpen defers client construction.
type s3Source struct {
	mu     sync.Mutex
	cfg    S3Config
	client *s3.Client
}

// ConfigureS3 installs the credentials/region used for every s3:// path
// this process resolves. Call it before the first scan against such a path.
func ConfigureS3(cfg S3Config) {
	defaultS3Source.mu.Lock()
	defaultS3Source.cfg = cfg
	defaultS3Source.client = nil
	defaultS3Source.mu.Unlock()
}

func (s *s3Source) ensureClient() (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 source: load config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	s.client = s3.NewFromConfig(cfg, s3Opts...)
	return s.client, nil
}

func splitS3Path(path string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(path, "s3://")
	idx := strings.Index(rest, "/")
	if idx <= 0 {
		return "", "", fmt.Errorf("s3 source: malformed path %q, want s3://bucket/key", path)
	}
	return rest[:idx], rest[idx+1:], nil
}

func (s *s3Source) OpenOrCreate(path string) (readAtCloser, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if _, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		if _, err := client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: strings.NewReader("")}); err != nil {
			return nil, fmt.Errorf("s3 source: create %s: %w", path, err)
		}
	}
	return &s3File{client: client, bucket: bucket, key: key}, nil
}

// s3File range-reads an S3 object so the handle can treat it exactly like a
// seekable local file, generalizing the source engine's column-blob
// S3Storage to whole-row-file reads.
type s3File struct {
	client *s3.Client
	bucket string
	key    string
}

func (f *s3File) ReadAt(p []byte, off int64) (int, error) {
	// S3 rejects a range that starts at or past the object's end; report
	// io.EOF there, as a local file does.
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, io.EOF
	}
	rng := fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)
	out, err := f.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()
	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (f *s3File) Close() error { return nil }

func (f *s3File) Size() (int64, error) {
	out, err := f.client.HeadObject(context.Background(), &s3.HeadObjectInput{Bucket: aws.String(f.bucket), Key: aws.String(f.key)})
	if err != nil {
		return 0, err
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

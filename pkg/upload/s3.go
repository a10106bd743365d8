package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config describes a bucket.
type S3Config struct {
	Bucket string
	Prefix string // key prefix, e.g. "uploads/"
	Region string
	// Endpoint targets an S3-compatible service (MinIO, R2) and switches to
	// path-style addressing. Empty for AWS.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL prefixes object keys in returned URLs, e.g. a CDN origin.
	PublicURL string
}

// NewS3Client builds an S3 client with static credentials.
func NewS3Client(cfg S3Config) *s3.Client {
	return s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
				Source:          "saulapp-config",
			}, nil
		}),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// S3Store stores uploads in an S3 bucket.
type S3Store struct {
	client S3API
	cfg    S3Config
}

// NewS3Store creates a new S3 upload store.
func NewS3Store(client S3API, cfg S3Config) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

func (s *S3Store) objectKey(key string) string { return s.cfg.Prefix + key }

func (s *S3Store) url(key string) string {
	if s.cfg.PublicURL == "" {
		return s.objectKey(key)
	}
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + s.objectKey(key)
}

// Put uploads r.
func (s *S3Store) Put(ctx context.Context, key, contentType string, r io.Reader) (*File, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	// Buffer so the SDK can compute the content length and checksum.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"upload-time": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}
	return &File{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         s.url(key),
		CreatedAt:   now,
	}, nil
}

// Open downloads an object.
func (s *S3Store) Open(ctx context.Context, key string) (*File, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}

	f := &File{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		URL:         s.url(key),
		Reader:      out.Body,
	}
	if out.LastModified != nil {
		f.CreatedAt = *out.LastModified
	}
	return f, nil
}

// Delete removes an object.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrNotFound
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// List returns the objects under the prefix, newest first.
func (s *S3Store) List(ctx context.Context) ([]*File, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.cfg.Prefix),
	})

	var files []*File
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.cfg.Prefix)
			if !validKey(key) {
				continue
			}
			f := &File{Key: key, Size: aws.ToInt64(obj.Size), URL: s.url(key)}
			if obj.LastModified != nil {
				f.CreatedAt = *obj.LastModified
			}
			files = append(files, f)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// Package blob adapts the S3-compatible object store behind the small
// surface the lifecycle orchestrators need: presigned grants for
// client-direct transfer, server-side copy, puts, buffered gets and
// single / batch / prefix deletes.
package blob

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmoliveira/docbox/internal/common"
	sc "github.com/dmoliveira/docbox/internal/server/config"
)

// deleteBatchMax is the S3 DeleteObjects per-request limit.
const deleteBatchMax = 1000

// s3API is the subset of the S3 client the adapter uses. *s3.Client
// satisfies it; tests substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store is the process-wide object-store handle. Construct once at startup
// and inject into the services; the underlying client is safe for
// concurrent use.
type Store struct {
	api     s3API
	presign *s3.PresignClient
	bucket  string
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// New builds the shared S3 client from static credentials and an optional
// custom endpoint (MinIO and friends).
func New(ctx context.Context, cfg *sc.Config) (*Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &Store{
		api:     client,
		presign: newS3PresignClient(client),
		bucket:  cfg.S3Bucket,
	}, nil
}

// PresignPut issues a write-capable URL for key, valid for ttl. The client
// uploads the byte stream directly to this URL out-of-band.
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &common.BlobStoreError{Op: "presign_put", Key: key, Err: err}
	}
	return req.URL, nil
}

// PresignGet issues a read URL for key, valid for ttl. With inline set the
// response carries an inline content disposition so browsers render it
// instead of downloading.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration, inline bool) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}
	if inline {
		in.ResponseContentDisposition = aws.String("inline")
	}
	req, err := presignGetObject(s.presign, ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &common.BlobStoreError{Op: "presign_get", Key: key, Err: err}
	}
	return req.URL, nil
}

// Put overwrites the blob at key with body. Used by the replace-in-place flow.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		ContentType: &contentType,
		Body:        body,
	})
	if err != nil {
		return &common.BlobStoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Copy performs a server-side copy from srcKey to destKey.
func (s *Store) Copy(ctx context.Context, srcKey, destKey, contentType string) error {
	in := &s3.CopyObjectInput{
		Bucket:     &s.bucket,
		CopySource: aws.String(s.bucket + "/" + srcKey),
		Key:        &destKey,
	}
	if contentType != "" {
		in.ContentType = &contentType
		in.MetadataDirective = types.MetadataDirectiveReplace
	}
	if _, err := s.api.CopyObject(ctx, in); err != nil {
		return &common.BlobStoreError{Op: "copy", Key: destKey, Err: err}
	}
	return nil
}

// Get buffers the whole object into memory and returns its bytes and content
// type. Acceptable for this system's expected file sizes; not a streaming
// passthrough.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, "", &common.BlobStoreError{Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", &common.BlobStoreError{Op: "get", Key: key, Err: err}
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return data, contentType, nil
}

// Delete removes a single blob.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return &common.BlobStoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// DeleteBatch removes the given keys, chunked to the S3 per-request limit.
func (s *Store) DeleteBatch(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchMax {
		end := start + deleteBatchMax
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		_, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &s.bucket,
			Delete: &types.Delete{Objects: objects},
		})
		if err != nil {
			return &common.BlobStoreError{Op: "delete_batch", Key: keys[start], Err: err}
		}
	}
	return nil
}

// DeletePrefix removes every blob whose key starts with prefix, then the
// prefix marker itself (the zero-byte "folder" placeholder). The listing is
// exhausted across continuation tokens before any delete is issued.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	var keys []string
	var continuation *string

	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return &common.BlobStoreError{Op: "list", Key: prefix, Err: err}
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	if len(keys) > 0 {
		if err := s.DeleteBatch(ctx, keys); err != nil {
			return err
		}
	}

	return s.DeleteBatch(ctx, []string{prefix})
}

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/oshokin/update-server/internal/config"
)

// DefaultPresignTTL is the lifetime of presigned download links.
const DefaultPresignTTL = time.Hour

// checksumMetadataKey stores the hex SHA-256 next to each object.
const checksumMetadataKey = "sha256"

// objectAPI is the subset of the S3 client used by S3.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
}

// presignAPI creates presigned requests.
type presignAPI interface {
	PresignGetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

// S3 stores artifacts in an S3-compatible bucket.
type S3 struct {
	objects    objectAPI
	presigner  presignAPI
	bucket     string
	prefix     string
	publicURL  string
	presignTTL time.Duration
}

// NewS3 builds an S3 storage using the default AWS credential chain.
func NewS3(ctx context.Context, settings config.S3Settings) (*S3, error) {
	var loadOptions []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(settings.Region))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}

		o.UsePathStyle = settings.PathStyle
	})

	return newS3(client, s3.NewPresignClient(client), settings), nil
}

func newS3(objects objectAPI, presign presignAPI, settings config.S3Settings) *S3 {
	return &S3{
		objects:    objects,
		presigner:  presign,
		bucket:     settings.Bucket,
		prefix:     strings.Trim(settings.Prefix, "/"),
		publicURL:  strings.TrimRight(settings.PublicURL, "/"),
		presignTTL: DefaultPresignTTL,
	}
}

// Put spools content to a temporary file to learn its size and checksum,
// then uploads it.
func (s *S3) Put(ctx context.Context, key string, content io.Reader) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	spool, err := os.CreateTemp("", "update-server-upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create spool file: %w", err)
	}

	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	hasher := sha256.New()

	size, err := io.Copy(io.MultiWriter(spool, hasher), content)
	if err != nil {
		return Object{}, fmt.Errorf("write artifact: %w", err)
	}

	if _, err = spool.Seek(0, io.SeekStart); err != nil {
		return Object{}, fmt.Errorf("rewind spool file: %w", err)
	}

	checksum := hasher.Sum(nil)

	_, err = s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          spool,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      map[string]string{checksumMetadataKey: hex.EncodeToString(checksum)},
	})
	if err != nil {
		return Object{}, backendError("put object", err)
	}

	return Object{
		Key:      key,
		Size:     size,
		Checksum: checksum,
	}, nil
}

// Locate returns the public URL of key, or a presigned link without one.
func (s *S3) Locate(ctx context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + escapeKey(s.objectKey(key)), nil
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", backendError("presign object", err)
	}

	return request.URL, nil
}

// Open downloads key.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	output, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}

		return nil, backendError("get object", err)
	}

	return output.Body, nil
}

// Delete removes key from the bucket. S3 treats missing keys as deleted.
func (s *S3) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return backendError("delete object", err)
	}

	return nil
}

func (s *S3) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}

	return path.Join(s.prefix, key)
}

package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/echain-id/credential-registry/interfaces"
)

// S3Store implements a content store using Amazon S3 or compatible services,
// for organizations mirroring pinned credentials into object storage. Objects
// are keyed by the SHA-256 of their bytes; the object key doubles as the CID
// this store issues (CIDs are store-scoped).
type S3Store struct {
	client         *s3.S3
	writeClient    *s3.S3
	bucketName     string
	prefix         string
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// NewS3Store creates a new S3 content store. If accessKey and secretKey are
// provided the store has write access; otherwise it is read-only for
// publicly accessible objects.
func NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	baseCfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		baseCfg.Endpoint = aws.String(endpoint)
	}

	baseSess, err := session.NewSession(&baseCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	readClient := s3.New(baseSess)

	hasWriteAccess := accessKey != "" && secretKey != ""
	writeClient := readClient

	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")

		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS write session: %w", err)
		}
		writeClient = s3.New(writeSess)
	} else {
		log.Warn("No S3 credentials provided - uploads will fail with an auth error")
	}

	return &S3Store{
		client:         readClient,
		writeClient:    writeClient,
		bucketName:     bucketName,
		prefix:         strings.TrimSuffix(prefix, "/"),
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// Upload puts the data under a digest-derived object key and returns that
// key as the CID. Re-uploading identical bytes overwrites the same object.
func (s *S3Store) Upload(ctx context.Context, data []byte, name string) (interfaces.ContentID, error) {
	if !s.hasWriteAccess {
		return "", fmt.Errorf("%w: S3 store has no write credentials", interfaces.ErrStoreAuth)
	}

	start := time.Now()
	key := s.objectKey(data)

	_, err := s.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"credential-name": aws.String(name),
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "AccessDenied") || strings.Contains(err.Error(), "InvalidAccessKeyId") {
			return "", fmt.Errorf("%w: %v", interfaces.ErrStoreAuth, err)
		}
		return "", fmt.Errorf("%w: failed to put object: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored content in S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return interfaces.ContentID(key), nil
}

// Fetch retrieves an object by the CID this store issued for it.
func (s *S3Store) Fetch(ctx context.Context, cid interfaces.ContentID) ([]byte, error) {
	if err := cid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}

	start := time.Now()
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(cid.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read object body: %v", interfaces.ErrContentUnavailable, err)
	}

	s.log.Debug("Fetched content from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", cid.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the bucket is accessible.
func (s *S3Store) Available(ctx context.Context) bool {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		s.log.Debug("S3 store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

// LocationURI returns the URI that identifies this store.
func (s *S3Store) LocationURI() string {
	return s.locationURI
}

func (s *S3Store) objectKey(data []byte) string {
	hash := sha256.Sum256(data)
	return path.Join(s.prefix, hex.EncodeToString(hash[:]))
}

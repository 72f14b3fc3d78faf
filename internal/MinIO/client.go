package MinIO

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	MinioEndpoint  string `env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	BucketName     string `env:"MINIO_BUCKET_NAME" env-default:"referral-extracts"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY" env-default:"admin"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY" env-default:""`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

// ErrObjectNotFound is returned when no extract exists for the requested
// (code, year, month).
var ErrObjectNotFound = errors.New("extract not found in storage")

// ExtractObject is one stored monthly extract under an authority prefix.
type ExtractObject struct {
	Year         int
	Month        int
	LastModified time.Time
}

// MinIOClient reads monthly referral extracts from object storage. Keys
// follow the upload convention {code}/{year}_{month:02d}.csv.
type MinIOClient struct {
	Client *minio.Client
	Bucket string
}

func New(cfg Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.BucketName, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.BucketName)
	}

	return &MinIOClient{
		Client: client,
		Bucket: cfg.BucketName,
	}, nil
}

func objectKey(code string, year, month int) string {
	return fmt.Sprintf("%s/%d_%02d.csv", code, year, month)
}

// parseKey extracts (year, month) from a full object key under the given
// code prefix. Objects that do not follow the naming convention are skipped
// by the caller.
func parseKey(code, key string) (int, int, bool) {
	name, ok := strings.CutPrefix(key, code+"/")
	if !ok {
		return 0, 0, false
	}
	name, ok = strings.CutSuffix(name, ".csv")
	if !ok {
		return 0, 0, false
	}
	parts := strings.Split(name, "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

// ListExtracts returns every stored (year, month) extract for one authority
// with its last-modified timestamp.
func (m *MinIOClient) ListExtracts(ctx context.Context, code string) ([]ExtractObject, error) {
	var extracts []ExtractObject
	objects := m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    code + "/",
		Recursive: true,
	})
	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list extracts for %q: %w", code, object.Err)
		}
		year, month, ok := parseKey(code, object.Key)
		if !ok {
			continue
		}
		extracts = append(extracts, ExtractObject{
			Year:         year,
			Month:        month,
			LastModified: object.LastModified,
		})
	}
	return extracts, nil
}

// ReadExtract opens one extract for streaming. The caller closes the reader.
func (m *MinIOClient) ReadExtract(ctx context.Context, code string, year, month int) (io.ReadCloser, error) {
	key := objectKey(code, year, month)
	if _, err := m.Client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{}); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat extract %q: %w", key, err)
	}
	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get extract %q: %w", key, err)
	}
	return obj, nil
}

// ExtractExists reports whether an extract is stored for the key.
func (m *MinIOClient) ExtractExists(ctx context.Context, code string, year, month int) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.Bucket, objectKey(code, year, month), minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ruslano69/hms-migrator/pkg/awsconf"
)

// S3Client - операции S3, используемые хранилищем
type S3Client interface {
	s3.ListObjectsV2APIClient
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store - файлы снапшота в S3 (или S3-совместимом хранилище)
type S3Store struct {
	client   S3Client
	uploader *manager.Uploader
}

// NewS3Store создает хранилище поверх готового клиента
func NewS3Store(client S3Client) *S3Store {
	return &S3Store{client: client, uploader: manager.NewUploader(client)}
}

// NewS3StoreFromConfig создает клиента S3 из настроек AWS
func NewS3StoreFromConfig(ctx context.Context, cfg awsconf.Config) (*S3Store, error) {
	awsCfg, err := cfg.Load(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3Store(client), nil
}

// List возвращает объект с точным ключом или все объекты под префиксом
func (s *S3Store) List(ctx context.Context, p string) ([]string, error) {
	bucket, key, err := awsconf.ParseS3Path(p)
	if err != nil {
		return nil, err
	}

	dir := key
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if k != key && !strings.HasPrefix(k, dir) {
				continue // key=data/db совпал с data/db_backup/...
			}
			if strings.HasSuffix(k, "/") || hidden(k) {
				continue
			}
			files = append(files, "s3://"+bucket+"/"+k)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	sort.Strings(files)
	return files, nil
}

// Read скачивает объект
func (s *S3Store) Read(ctx context.Context, p string) ([]byte, error) {
	bucket, key, err := awsconf.ParseS3Path(p)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", p, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Write загружает объект через manager.Uploader (multipart для больших файлов)
func (s *S3Store) Write(ctx context.Context, p string, data []byte) error {
	bucket, key, err := awsconf.ParseS3Path(p)
	if err != nil {
		return err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", p, err)
	}
	return nil
}

// Join соединяет элементы s3:// пути через "/"
func (s *S3Store) Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.TrimPrefix(e, "/")
		}
		if i < len(elem)-1 {
			e = strings.TrimSuffix(e, "/")
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

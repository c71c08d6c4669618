// Package awsconf собирает aws.Config для клиентов S3 и Glue из настроек
// миграции: регион, профиль, статические ключи и альтернативный endpoint
// (MinIO, LocalStack).
package awsconf

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultRegion - регион по умолчанию
const DefaultRegion = "us-east-1"

// Config - настройки доступа к AWS
type Config struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Regions - регионы, в которых доступен Glue Data Catalog
var Regions = []string{
	"af-south-1",
	"ap-east-1", "ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
	"ap-south-1", "ap-south-2", "ap-southeast-1", "ap-southeast-2", "ap-southeast-3", "ap-southeast-4",
	"ca-central-1", "ca-west-1",
	"cn-north-1", "cn-northwest-1",
	"eu-central-1", "eu-central-2", "eu-north-1", "eu-south-1", "eu-south-2",
	"eu-west-1", "eu-west-2", "eu-west-3",
	"il-central-1",
	"me-central-1", "me-south-1",
	"sa-east-1",
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"us-gov-east-1", "us-gov-west-1",
}

// ValidateRegion проверяет, что регион известен
func ValidateRegion(region string) error {
	if !slices.Contains(Regions, region) {
		return fmt.Errorf("invalid region %q, supported regions: %s", region, strings.Join(Regions, ", "))
	}
	return nil
}

// SetDefaults устанавливает регион по умолчанию
func (c *Config) SetDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.Region != "" && c.Endpoint == "" {
		if err := ValidateRegion(c.Region); err != nil {
			return err
		}
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

// Load загружает aws.Config: цепочка провайдеров SDK по умолчанию,
// либо статические ключи, если они заданы
func (c Config) Load(ctx context.Context) (aws.Config, error) {
	c.SetDefaults()

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}
	if c.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.Profile))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// ParseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	u, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", s3Path, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, s3Path)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("missing bucket in %q", s3Path)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// IsS3Path reports whether path is an s3:// URI.
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

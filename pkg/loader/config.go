package loader

import (
	"context"
	"fmt"

	"github.com/ruslano69/hms-migrator/pkg/awsconf"
	"github.com/ruslano69/hms-migrator/pkg/brokers"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
)

// Получатели единиц импорта
const (
	TargetGlue     = "glue"
	TargetKafka    = "kafka"
	TargetRabbitMQ = "rabbitmq"
	TargetFile     = "file"
)

// Config - получатель и его настройки
type Config struct {
	Target string         `yaml:"target"`
	Glue   GlueConfig     `yaml:"glue"`
	Broker brokers.Config `yaml:"broker"`
	File   FileConfig     `yaml:"file"`
}

// SetDefaults - по умолчанию Glue
func (c *Config) SetDefaults() {
	if c.Target == "" {
		c.Target = TargetGlue
	}
	if c.Target == TargetKafka || c.Target == TargetRabbitMQ {
		c.Broker.Type = c.Target
	}
}

// Validate проверяет настройки выбранного получателя
func (c *Config) Validate() error {
	switch c.Target {
	case "", TargetGlue:
	case TargetKafka:
		if len(c.Broker.Brokers) == 0 || c.Broker.Topic == "" {
			return fmt.Errorf("%w: kafka target requires broker.brokers and broker.topic", catalog.ErrInvalidConfiguration)
		}
	case TargetRabbitMQ:
		if c.Broker.Host == "" || c.Broker.Queue == "" {
			return fmt.Errorf("%w: rabbitmq target requires broker.host and broker.queue", catalog.ErrInvalidConfiguration)
		}
	case TargetFile:
		if c.File.Path == "" {
			return fmt.Errorf("%w: file target requires file.path", catalog.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported target %q (supported: glue, kafka, rabbitmq, file)", catalog.ErrInvalidConfiguration, c.Target)
	}
	return nil
}

// New создает загрузчик выбранного получателя
func New(ctx context.Context, cfg Config, awsCfg awsconf.Config, opts Options) (Loader, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Target {
	case TargetGlue:
		return NewGlueLoaderFromConfig(ctx, awsCfg, cfg.Glue, opts)
	case TargetKafka, TargetRabbitMQ:
		return ConnectBroker(ctx, cfg.Broker, opts)
	default:
		store, err := snapshot.OpenStore(ctx, cfg.File.Path, awsCfg)
		if err != nil {
			return nil, err
		}
		return NewFileLoader(store, cfg.File, opts), nil
	}
}

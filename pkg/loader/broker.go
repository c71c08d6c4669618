package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/brokers"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// HeaderUnitType - заголовок с типом единицы импорта
const HeaderUnitType = "unit-type"

// BrokerLoader публикует каждую единицу импорта отдельным JSON-сообщением.
// Ключ сообщения - база (для баз и таблиц) или база.таблица (для партиций),
// поэтому единицы одной таблицы идут в одну партицию Kafka по порядку.
type BrokerLoader struct {
	publisher brokers.Publisher
	guard     *Guard
	logger    zerolog.Logger
}

// NewBrokerLoader создает загрузчик поверх подключенного Publisher
func NewBrokerLoader(publisher brokers.Publisher, opts Options) *BrokerLoader {
	return &BrokerLoader{
		publisher: publisher,
		guard:     opts.Guard,
		logger:    opts.Logger.With().Str("component", publisher.GetBrokerType()).Logger(),
	}
}

// ConnectBroker создает Publisher по конфигурации и подключается
func ConnectBroker(ctx context.Context, cfg brokers.Config, opts Options) (*BrokerLoader, error) {
	publisher, err := brokers.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := publisher.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	return NewBrokerLoader(publisher, opts), nil
}

// Target - тип брокера
func (l *BrokerLoader) Target() string {
	return l.publisher.GetBrokerType()
}

// LoadDatabases публикует единицы импорта баз
func (l *BrokerLoader) LoadDatabases(ctx context.Context, units []catalog.ImportDatabase) (Result, error) {
	var res Result
	var errs []error
	for _, u := range units {
		err := l.publish(ctx, databaseUnit(u), EntityDatabase, firstName(u.Items), u)
		errs = append(errs, l.count(ctx, &res, len(u.Items), err))
	}
	return res, errors.Join(errs...)
}

// LoadTables публикует единицы импорта таблиц
func (l *BrokerLoader) LoadTables(ctx context.Context, units []catalog.ImportTable) (Result, error) {
	var res Result
	var errs []error
	for _, u := range units {
		err := l.publish(ctx, tableUnit(u), EntityTable, u.Database, u)
		errs = append(errs, l.count(ctx, &res, len(u.Items), err))
	}
	return res, errors.Join(errs...)
}

// LoadPartitions публикует батчи партиций
func (l *BrokerLoader) LoadPartitions(ctx context.Context, units []catalog.ImportPartitions) (Result, error) {
	var res Result
	var errs []error
	for i, u := range units {
		err := l.publish(ctx, partitionUnit(u, i), EntityPartition, u.Database+"."+u.Table, u)
		errs = append(errs, l.count(ctx, &res, len(u.Items), err))
	}
	return res, errors.Join(errs...)
}

func (l *BrokerLoader) publish(ctx context.Context, unit, entity, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal: %w", unit, err)
	}
	msg := brokers.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: map[string]string{HeaderUnitType: entity},
	}
	err = l.guard.Call(ctx, unit, payload, func(ctx context.Context) error {
		return l.publisher.Publish(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", unit, err)
	}
	l.logger.Debug().Str("unit", unit).Int("bytes", len(value)).Msg("published")
	return nil
}

// Close закрывает соединение с брокером
func (l *BrokerLoader) Close() error {
	return l.publisher.Close()
}

// count учитывает единицу импорта; наружу отдается только сбой коллекции
func (l *BrokerLoader) count(ctx context.Context, r *Result, items int, err error) error {
	r.Units++
	if err == nil {
		r.Created += items
		return nil
	}
	r.Failed += items
	if Fault(ctx, err) {
		return err
	}
	l.logger.Warn().Err(err).Msg("import unit rejected")
	return nil
}

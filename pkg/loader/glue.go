package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/awsconf"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// MaxGlueBatch - лимит BatchCreatePartition
const MaxGlueBatch = 100

// GlueAPI - используемая часть клиента Glue
type GlueAPI interface {
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	BatchCreatePartition(ctx context.Context, params *glue.BatchCreatePartitionInput, optFns ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error)
}

// GlueConfig - целевой Glue Data Catalog
type GlueConfig struct {
	// CatalogID - ID аккаунта каталога; пусто = аккаунт вызывающего
	CatalogID string `yaml:"catalog_id"`
}

// GlueLoader создает базы, таблицы и партиции в Glue Data Catalog
type GlueLoader struct {
	client    GlueAPI
	catalogID *string
	region    string
	guard     *Guard
	workers   int
	logger    zerolog.Logger
}

// Options - общие параметры загрузчиков
type Options struct {
	Guard   *Guard
	Workers int
	Logger  zerolog.Logger
}

// NewGlueLoader создает загрузчик поверх готового клиента
func NewGlueLoader(client GlueAPI, cfg GlueConfig, region string, opts Options) *GlueLoader {
	l := &GlueLoader{
		client:  client,
		region:  region,
		guard:   opts.Guard,
		workers: opts.Workers,
		logger:  opts.Logger.With().Str("component", "glue").Logger(),
	}
	if cfg.CatalogID != "" {
		l.catalogID = aws.String(cfg.CatalogID)
	}
	if l.workers <= 0 {
		l.workers = 1
	}
	return l
}

// NewGlueLoaderFromConfig создает клиент Glue из настроек AWS
func NewGlueLoaderFromConfig(ctx context.Context, awsCfg awsconf.Config, cfg GlueConfig, opts Options) (*GlueLoader, error) {
	sdkCfg, err := awsCfg.Load(ctx)
	if err != nil {
		return nil, err
	}
	client := glue.NewFromConfig(sdkCfg, func(o *glue.Options) {
		if awsCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(awsCfg.Endpoint)
		}
	})
	return NewGlueLoader(client, cfg, sdkCfg.Region, opts), nil
}

// Target - "glue:<region>[/<catalog>]"
func (l *GlueLoader) Target() string {
	if l.catalogID != nil {
		return "glue:" + l.region + "/" + *l.catalogID
	}
	return "glue:" + l.region
}

// LoadDatabases вызывает CreateDatabase для каждой базы
func (l *GlueLoader) LoadDatabases(ctx context.Context, units []catalog.ImportDatabase) (Result, error) {
	var t tally
	err := forEach(ctx, l.workers, len(units), func(ctx context.Context, i int) error {
		u := units[i]
		res, err := l.createEach(ctx, databaseUnit(u), u, u.Items, func(ctx context.Context, it catalog.Item) error {
			in, err := toDatabaseInput(it)
			if err != nil {
				return err
			}
			_, err = l.client.CreateDatabase(ctx, &glue.CreateDatabaseInput{
				CatalogId:     l.catalogID,
				DatabaseInput: in,
			})
			return err
		})
		t.add(res)
		return err
	})
	return t.result(), err
}

// LoadTables вызывает CreateTable для каждой таблицы
func (l *GlueLoader) LoadTables(ctx context.Context, units []catalog.ImportTable) (Result, error) {
	var t tally
	err := forEach(ctx, l.workers, len(units), func(ctx context.Context, i int) error {
		u := units[i]
		res, err := l.createEach(ctx, tableUnit(u), u, u.Items, func(ctx context.Context, it catalog.Item) error {
			in, err := toTableInput(it)
			if err != nil {
				return err
			}
			_, err = l.client.CreateTable(ctx, &glue.CreateTableInput{
				CatalogId:    l.catalogID,
				DatabaseName: aws.String(u.Database),
				TableInput:   in,
			})
			return err
		})
		t.add(res)
		return err
	})
	return t.result(), err
}

// createEach создает элементы единицы импорта по одному;
// AlreadyExistsException считается пропуском. Ошибка возвращается
// только при сбое коллекции (см. Fault).
func (l *GlueLoader) createEach(ctx context.Context, unit string, data any, items []catalog.Item, create func(context.Context, catalog.Item) error) (Result, error) {
	res := Result{Units: 1}
	var errs []error
	for _, it := range items {
		skipped := false
		err := l.guard.Call(ctx, unit, data, func(ctx context.Context) error {
			err := create(ctx, it)
			if IsAlreadyExists(err) {
				skipped = true
				return nil
			}
			return err
		})
		switch {
		case Fault(ctx, err):
			res.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", unit, err))
		case err != nil:
			res.Failed++
			l.logger.Warn().Err(err).Str("unit", unit).Msg("import unit rejected")
		case skipped:
			res.Skipped++
			l.logger.Debug().Str("unit", unit).Msg("already exists")
		default:
			res.Created++
		}
	}
	return res, errors.Join(errs...)
}

// LoadPartitions вызывает BatchCreatePartition для каждого батча
func (l *GlueLoader) LoadPartitions(ctx context.Context, units []catalog.ImportPartitions) (Result, error) {
	var t tally
	err := forEach(ctx, l.workers, len(units), func(ctx context.Context, i int) error {
		res, err := l.loadBatch(ctx, units[i], i)
		t.add(res)
		return err
	})
	return t.result(), err
}

func (l *GlueLoader) loadBatch(ctx context.Context, u catalog.ImportPartitions, index int) (Result, error) {
	unit := partitionUnit(u, index)
	res := Result{Units: 1}

	if len(u.Items) > MaxGlueBatch {
		res.Failed = len(u.Items)
		return res, fmt.Errorf("%s: %w: batch of %d exceeds Glue limit %d", unit, catalog.ErrInvalidConfiguration, len(u.Items), MaxGlueBatch)
	}

	inputs := make([]types.PartitionInput, len(u.Items))
	for i, it := range u.Items {
		in, err := toPartitionInput(it)
		if err != nil {
			res.Failed = len(u.Items)
			l.reject(unit, u, fmt.Errorf("%s: %w", unit, err))
			return res, nil
		}
		inputs[i] = *in
	}

	var out *glue.BatchCreatePartitionOutput
	err := l.guard.Call(ctx, unit, u, func(ctx context.Context) error {
		var err error
		out, err = l.client.BatchCreatePartition(ctx, &glue.BatchCreatePartitionInput{
			CatalogId:          l.catalogID,
			DatabaseName:       aws.String(u.Database),
			TableName:          aws.String(u.Table),
			PartitionInputList: inputs,
		})
		return err
	})
	if err != nil {
		res.Failed = len(u.Items)
		if Fault(ctx, err) {
			return res, fmt.Errorf("%s: %w", unit, err)
		}
		l.logger.Warn().Err(err).Str("unit", unit).Msg("partition batch rejected")
		return res, nil
	}

	for _, pe := range out.Errors {
		code, msg := "", ""
		if pe.ErrorDetail != nil {
			code = aws.ToString(pe.ErrorDetail.ErrorCode)
			msg = aws.ToString(pe.ErrorDetail.ErrorMessage)
		}
		if code == "AlreadyExistsException" {
			res.Skipped++
			continue
		}
		res.Failed++
		l.reject(unit, pe.PartitionValues, fmt.Errorf("%s: partition %v: %s: %s", unit, pe.PartitionValues, code, msg))
	}
	res.Created = len(u.Items) - res.Skipped - res.Failed
	return res, nil
}

// reject пишет отказ, не прошедший через retryer, в лог и DLQ
func (l *GlueLoader) reject(unit string, data any, err error) {
	l.logger.Warn().Err(err).Str("unit", unit).Msg("import unit rejected")
	if l.guard != nil && l.guard.Retryer != nil {
		l.guard.Retryer.Reject(unit, data, err)
	}
}

// Close - у клиента Glue нет соединений для закрытия
func (l *GlueLoader) Close() error {
	return nil
}

// IsAlreadyExists - объект уже есть в каталоге
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var ae *types.AlreadyExistsException
	if errors.As(err, &ae) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AlreadyExistsException"
}

// dataErrors - ошибки входных данных, не говорящие о сбое сервиса
var dataErrors = map[string]bool{
	"AlreadyExistsException":               true,
	"InvalidInputException":                true,
	"EntityNotFoundException":              true,
	"ValidationException":                  true,
	"AccessDeniedException":                true,
	"ResourceNumberLimitExceededException": true,
}

// IsServiceFailure - классификатор для circuit breaker: ошибки данных
// и прав не открывают circuit
func IsServiceFailure(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return !dataErrors[apiErr.ErrorCode()]
	}
	return true
}

func toDatabaseInput(it catalog.Item) (*types.DatabaseInput, error) {
	var db catalog.DatabaseInput
	if err := catalog.DecodeItem(it, &db); err != nil {
		return nil, err
	}
	return &types.DatabaseInput{
		Name:        aws.String(db.Name),
		Description: optString(db.Description),
		LocationUri: optString(db.LocationURI),
		Parameters:  db.Parameters,
	}, nil
}

func toTableInput(it catalog.Item) (*types.TableInput, error) {
	var tbl catalog.TableInput
	if err := catalog.DecodeItem(it, &tbl); err != nil {
		return nil, err
	}
	return &types.TableInput{
		Name:              aws.String(tbl.Name),
		Description:       optString(tbl.Description),
		Owner:             optString(tbl.Owner),
		LastAccessTime:    optTime(tbl.LastAccessTime),
		Retention:         tbl.Retention,
		StorageDescriptor: toStorageDescriptor(tbl.StorageDescriptor),
		PartitionKeys:     toColumns(tbl.PartitionKeys),
		ViewOriginalText:  optString(tbl.ViewOriginalText),
		ViewExpandedText:  optString(tbl.ViewExpandedText),
		TableType:         optString(tbl.TableType),
		Parameters:        tbl.Parameters,
	}, nil
}

func toPartitionInput(it catalog.Item) (*types.PartitionInput, error) {
	var p catalog.PartitionInput
	if err := catalog.DecodeItem(it, &p); err != nil {
		return nil, err
	}
	return &types.PartitionInput{
		Values:            p.Values,
		LastAccessTime:    optTime(p.LastAccessTime),
		StorageDescriptor: toStorageDescriptor(p.StorageDescriptor),
		Parameters:        p.Parameters,
	}, nil
}

func toStorageDescriptor(sd *catalog.StorageDescriptor) *types.StorageDescriptor {
	if sd == nil {
		return nil
	}
	out := &types.StorageDescriptor{
		Columns:                toColumns(sd.Columns),
		Location:               optString(sd.Location),
		InputFormat:            optString(sd.InputFormat),
		OutputFormat:           optString(sd.OutputFormat),
		Compressed:             sd.Compressed,
		NumberOfBuckets:        sd.NumberOfBuckets,
		BucketColumns:          sd.BucketColumns,
		Parameters:             sd.Parameters,
		StoredAsSubDirectories: sd.StoredAsSubDirectories,
	}
	if sd.SerdeInfo != nil {
		out.SerdeInfo = &types.SerDeInfo{
			Name:                 optString(sd.SerdeInfo.Name),
			SerializationLibrary: optString(sd.SerdeInfo.SerializationLibrary),
			Parameters:           sd.SerdeInfo.Parameters,
		}
	}
	for _, o := range sd.SortColumns {
		out.SortColumns = append(out.SortColumns, types.Order{
			Column:    aws.String(o.Column),
			SortOrder: o.SortOrder,
		})
	}
	return out
}

func toColumns(cols []catalog.Column) []types.Column {
	if len(cols) == 0 {
		return nil
	}
	out := make([]types.Column, len(cols))
	for i, c := range cols {
		out[i] = types.Column{
			Name:    aws.String(c.Name),
			Type:    optString(c.Type),
			Comment: optString(c.Comment),
		}
	}
	return out
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// optTime - epoch seconds; 0 = не задано
func optTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	return aws.Time(time.Unix(sec, 0).UTC())
}

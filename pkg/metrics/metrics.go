// Package metrics собирает счетчики одного запуска миграции в собственный
// реестр Prometheus и отправляет их в Pushgateway по завершении.
// Миграция - пакетная задача, поэтому эндпоинт /metrics не поднимается.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Стадии, по которым считаются записи и длительности
const (
	StageExtract   = "extract"
	StageFilter    = "filter"
	StageDedupe    = "dedupe"
	StageTransform = "transform"
	StageLoad      = "load"
	StageExport    = "export"
)

// Результаты загрузки единицы импорта
const (
	ResultCreated = "created"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Config - настройки Pushgateway
type Config struct {
	Enabled    bool   `yaml:"enabled"`
	GatewayURL string `yaml:"gateway_url"`
	Job        string `yaml:"job"`
}

// Validate проверяет настройки включенного Pushgateway
func (c *Config) Validate() error {
	if c.Enabled && c.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required when metrics are enabled")
	}
	return nil
}

// Recorder - коллекторы одного запуска. Нулевой *Recorder допустим:
// все методы становятся no-op.
type Recorder struct {
	gatewayURL string
	job        string
	grouping   map[string]string
	reg        *prometheus.Registry

	records    *prometheus.CounterVec
	batches    prometheus.Counter
	loadUnits  *prometheus.CounterVec
	stages     *prometheus.CounterVec
	duration   *prometheus.SummaryVec
	lastFinish prometheus.Gauge
}

// New создает Recorder; gatewayURL может быть пустым, тогда Push ничего не делает
func New(cfg Config, grouping map[string]string) (*Recorder, error) {
	job := cfg.Job
	if job == "" {
		job = "hms_migration"
	}

	r := &Recorder{
		gatewayURL: cfg.GatewayURL,
		job:        job,
		grouping:   grouping,
		reg:        prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hms_migration_records_total",
				Help: "Catalog records per entity after each stage.",
			},
			[]string{"entity", "stage"},
		),
		batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hms_migration_partition_batches_total",
				Help: "Partition batches produced by the transform stage.",
			},
		),
		loadUnits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hms_migration_load_units_total",
				Help: "Import units handed to the target catalog, by entity and result.",
			},
			[]string{"entity", "result"},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hms_migration_stage_total",
				Help: "Stage executions by stage and status.",
			},
			[]string{"stage", "status"},
		),
		duration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "hms_migration_stage_duration_seconds",
				Help:       "Stage duration in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"stage", "status"},
		),
		lastFinish: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hms_migration_last_finish_timestamp_seconds",
				Help: "Unix time of the last finished run.",
			},
		),
	}

	for _, c := range []prometheus.Collector{r.records, r.batches, r.loadUnits, r.stages, r.duration, r.lastFinish} {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return r, nil
}

// Registry возвращает реестр коллекторов
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// AddRecords учитывает n записей сущности entity после стадии stage
func (r *Recorder) AddRecords(entity, stage string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.records.WithLabelValues(entity, stage).Add(float64(n))
}

// AddBatches учитывает n батчей партиций
func (r *Recorder) AddBatches(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.batches.Add(float64(n))
}

// AddLoadUnits учитывает n единиц импорта с результатом result
func (r *Recorder) AddLoadUnits(entity, result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.loadUnits.WithLabelValues(entity, result).Add(float64(n))
}

// ObserveStage фиксирует выполнение стадии
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.stages.WithLabelValues(stage, status).Inc()
	r.duration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// Push отправляет реестр в Pushgateway (PUT заменяет группу целиком)
func (r *Recorder) Push() error {
	if r == nil || r.gatewayURL == "" {
		return nil
	}
	r.lastFinish.SetToCurrentTime()

	p := push.New(r.gatewayURL, r.job).Gatherer(r.reg)
	for k, v := range r.grouping {
		p = p.Grouping(k, v)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", r.gatewayURL, err)
	}
	return nil
}

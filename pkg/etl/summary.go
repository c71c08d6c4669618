package etl

import (
	"errors"

	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/report"
	"github.com/ruslano69/hms-migrator/pkg/resultlog"
	"github.com/ruslano69/hms-migrator/pkg/retry"
)

// Статусы прогона
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Status возвращает итоговый статус прогона по ошибке Execute
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrPartialLoad):
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Report собирает данные XLSX-отчета
func (p *Processor) Report(failures []retry.DLQEntry, execErr error) *report.Report {
	s := p.stats
	r := &report.Report{
		RunID:     p.rt.RunID,
		Mode:      p.config.Mode,
		Source:    p.Source(),
		Target:    p.Target(),
		Status:    Status(execErr),
		StartedAt: s.StartTime,
		Duration:  s.Duration,
		Filter:    p.config.Filter,
		Set:       p.set,
		Failures:  failures,
	}
	if execErr != nil {
		r.Error = execErr.Error()
	}

	t := s.Transform
	r.Stages = []report.Stage{
		stage(loader.EntityDatabase, t.DatabasesIn, t.DatabasesFiltered, t.DatabasesOut, s.Load.Databases),
		stage(loader.EntityTable, t.TablesIn, t.TablesFiltered, t.TablesOut, s.Load.Tables),
		stage(loader.EntityPartition, t.PartitionsIn, t.PartitionsFiltered, t.PartitionsOut, s.Load.Partitions),
	}
	if s.Load.Partitions.Units == 0 {
		// без загрузки единицы импорта партиций - батчи
		r.Stages[2].Units = t.Batches
	}
	return r
}

func stage(entity string, in, filtered, out int, res loader.Result) report.Stage {
	return report.Stage{
		Entity:   entity,
		In:       in,
		Filtered: filtered,
		Out:      out,
		Units:    res.Units,
		Created:  res.Created,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
	}
}

// Result собирает итог прогона для публикации в Redis.
// Статус и длительность вычисляет публикатор.
func (p *Processor) Result() resultlog.MigrationResult {
	s := p.stats
	return resultlog.MigrationResult{
		RunID:      p.rt.RunID,
		Mode:       p.config.Mode,
		StartedAt:  s.StartTime,
		FinishedAt: s.EndTime,
		Databases:  s.Transform.DatabasesOut,
		Tables:     s.Transform.TablesOut,
		Partitions: s.Transform.PartitionsOut,
		Batches:    s.Transform.Batches,
		Failed:     s.Load.Failed(),
	}
}

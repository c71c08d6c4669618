package transform

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// FilterTerm - пара шаблонов "база.таблица"
type FilterTerm struct {
	DatabasePattern string
	TablePattern    string
}

// FilterExpression - упорядоченный список термов; пустой список означает
// отсутствие ограничений
type FilterExpression []FilterTerm

// Empty returns true when the expression restricts nothing.
func (e FilterExpression) Empty() bool {
	return len(e) == 0
}

func (e FilterExpression) String() string {
	parts := make([]string, len(e))
	for i, t := range e {
		parts[i] = t.DatabasePattern + "." + t.TablePattern
	}
	return strings.Join(parts, ",")
}

// PrefixConfig - префиксы, добавляемые к шаблонам перед сопоставлением
type PrefixConfig struct {
	DatabasePrefix string `yaml:"database_prefix"`
	TablePrefix    string `yaml:"table_prefix"`
}

// ParseFilter разбирает строку вида "db1.table1,db2.table2%".
// Каждый токен делится по первой точке; токен без точки - ошибка.
// Пустая строка дает пустое выражение.
func ParseFilter(s string) (FilterExpression, error) {
	var expr FilterExpression
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		db, table, ok := strings.Cut(token, ".")
		if !ok {
			return nil, fmt.Errorf("%w: token %q has no database/table separator", catalog.ErrInvalidFilterSyntax, token)
		}
		expr = append(expr, FilterTerm{DatabasePattern: db, TablePattern: table})
	}
	return expr, nil
}

type compiledTerm struct {
	db    *LikePattern
	table *LikePattern
}

// Matcher - скомпилированное выражение фильтра
type Matcher struct {
	terms []compiledTerm
}

// CompileFilter применяет префиксы к шаблонам и компилирует каждый терм.
// Для пустого выражения возвращает матчер, пропускающий все.
func CompileFilter(expr FilterExpression, prefix PrefixConfig) *Matcher {
	m := &Matcher{terms: make([]compiledTerm, 0, len(expr))}
	for _, t := range expr {
		m.terms = append(m.terms, compiledTerm{
			db:    CompileLike(prefix.DatabasePrefix + t.DatabasePattern),
			table: CompileLike(prefix.TablePrefix + t.TablePattern),
		})
	}
	return m
}

// MatchesAll reports whether the matcher is the identity filter.
func (m *Matcher) MatchesAll() bool {
	return m == nil || len(m.terms) == 0
}

// MatchDatabase - база проходит, если ее имя подходит под шаблон базы любого терма
func (m *Matcher) MatchDatabase(database string) bool {
	if m.MatchesAll() {
		return true
	}
	for _, t := range m.terms {
		if t.db.Match(database) {
			return true
		}
	}
	return false
}

// MatchTable - таблица (и партиции таблицы) проходит, если хотя бы один терм
// совпал и по базе, и по таблице
func (m *Matcher) MatchTable(database, table string) bool {
	if m.MatchesAll() {
		return true
	}
	for _, t := range m.terms {
		if t.db.Match(database) && t.table.Match(table) {
			return true
		}
	}
	return false
}

// NameSelector извлекает из записи имена, по которым идет сопоставление.
// Table == nil означает запись уровня базы данных.
type NameSelector[T any] struct {
	Database func(T) string
	Table    func(T) string
}

// Селекторы для трех типов записей
var (
	DatabaseNames = NameSelector[catalog.DatabaseRecord]{
		Database: func(r catalog.DatabaseRecord) string { return r.QualifiedName },
	}
	TableNames = NameSelector[catalog.TableRecord]{
		Database: func(r catalog.TableRecord) string { return r.DatabaseName },
		Table:    func(r catalog.TableRecord) string { return r.QualifiedName },
	}
	PartitionNames = NameSelector[catalog.PartitionRecord]{
		Database: func(r catalog.PartitionRecord) string { return r.DatabaseName },
		Table:    func(r catalog.PartitionRecord) string { return r.TableName },
	}
)

// Filter возвращает записи, подходящие под любой терм выражения.
// Пустое выражение - тождественный проход.
func Filter[T any](records []T, expr FilterExpression, prefix PrefixConfig, sel NameSelector[T]) []T {
	return FilterWith(records, CompileFilter(expr, prefix), sel)
}

// FilterWith - то же, что Filter, но с уже скомпилированным матчером.
// Один проход; порядок и дубликаты входа сохраняются, запись,
// подходящая под несколько термов, попадает в результат один раз.
func FilterWith[T any](records []T, m *Matcher, sel NameSelector[T]) []T {
	if m.MatchesAll() {
		return slices.Clone(records)
	}

	out := make([]T, 0, len(records))
	for _, r := range records {
		var ok bool
		if sel.Table == nil {
			ok = m.MatchDatabase(sel.Database(r))
		} else {
			ok = m.MatchTable(sel.Database(r), sel.Table(r))
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterDatabases фильтрует записи баз данных
func FilterDatabases(records []catalog.DatabaseRecord, expr FilterExpression, prefix PrefixConfig) []catalog.DatabaseRecord {
	return Filter(records, expr, prefix, DatabaseNames)
}

// FilterTables фильтрует записи таблиц
func FilterTables(records []catalog.TableRecord, expr FilterExpression, prefix PrefixConfig) []catalog.TableRecord {
	return Filter(records, expr, prefix, TableNames)
}

// FilterPartitions фильтрует записи партиций
func FilterPartitions(records []catalog.PartitionRecord, expr FilterExpression, prefix PrefixConfig) []catalog.PartitionRecord {
	return Filter(records, expr, prefix, PartitionNames)
}

package processors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/transform"
)

// RedactorType - тип процессора в конфигурации
const RedactorType = "redact_parameters"

// MaskPattern определяет тип маскирования
type MaskPattern string

const (
	// MaskStars заменяет значение на "****"
	MaskStars MaskPattern = "stars"
	// MaskPartial оставляет первый и последний символ (secret → s***t)
	MaskPartial MaskPattern = "partial"
	// MaskFirst2Last2 показывает только первые 2 и последние 2 символа
	MaskFirst2Last2 MaskPattern = "first2_last2"
)

// DefaultRedactedKeys - ключи параметров, в которых Hive и storage handlers
// обычно хранят учетные данные (JDBC storage handler, S3A, HBase)
var DefaultRedactedKeys = []string{
	"%password%",
	"%secret%",
	"%access.key%",
	"%credential%",
}

// ParameterRedactor маскирует значения параметров баз, таблиц, партиций,
// storage descriptor и serde, если ключ совпадает с одним из LIKE-шаблонов.
type ParameterRedactor struct {
	name    string
	keys    []*transform.LikePattern
	pattern MaskPattern
}

// NewParameterRedactor создает маскировщик параметров
func NewParameterRedactor(keyPatterns []string, pattern MaskPattern) *ParameterRedactor {
	r := &ParameterRedactor{name: RedactorType, pattern: pattern}
	for _, k := range keyPatterns {
		// ключи параметров сравниваются без учета регистра
		r.keys = append(r.keys, transform.CompileLike(strings.ToLower(k)))
	}
	return r
}

// NewParameterRedactorFromConfig создает маскировщик из params:
//
//	keys: ["%password%", "%token%"]   # по умолчанию DefaultRedactedKeys
//	mask: stars|partial|first2_last2  # по умолчанию stars
func NewParameterRedactorFromConfig(params map[string]any) (*ParameterRedactor, error) {
	keys := DefaultRedactedKeys
	if raw, ok := params["keys"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: keys must be a list", RedactorType)
		}
		keys = make([]string, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s: key pattern must be a string, got %T", RedactorType, v)
			}
			keys = append(keys, s)
		}
	}

	pattern := MaskStars
	if raw, ok := params["mask"]; ok {
		s, _ := raw.(string)
		switch MaskPattern(s) {
		case MaskStars, MaskPartial, MaskFirst2Last2:
			pattern = MaskPattern(s)
		default:
			return nil, fmt.Errorf("%s: unknown mask %q", RedactorType, s)
		}
	}

	return NewParameterRedactor(keys, pattern), nil
}

// Name возвращает имя процессора
func (r *ParameterRedactor) Name() string {
	return r.name
}

// Process возвращает новый снапшот с замаскированными параметрами
func (r *ParameterRedactor) Process(ctx context.Context, snap *catalog.Snapshot) (*catalog.Snapshot, error) {
	if len(r.keys) == 0 {
		return snap, nil
	}

	out := &catalog.Snapshot{
		Databases:  make([]catalog.DatabaseRecord, len(snap.Databases)),
		Tables:     make([]catalog.TableRecord, len(snap.Tables)),
		Partitions: make([]catalog.PartitionRecord, len(snap.Partitions)),
	}
	for i, d := range snap.Databases {
		d.Item = r.redactItem(d.Item)
		out.Databases[i] = d
	}
	for i, t := range snap.Tables {
		t.Item = r.redactItem(t.Item)
		out.Tables[i] = t
	}
	for i, p := range snap.Partitions {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.Item = r.redactItem(p.Item)
		out.Partitions[i] = p
	}
	return out, nil
}

func (r *ParameterRedactor) redactItem(it catalog.Item) catalog.Item {
	if !r.needsRedaction(map[string]any(it)) {
		return it
	}
	cp := it.Clone()
	r.walk(map[string]any(cp))
	return cp
}

// needsRedaction позволяет не копировать документы без секретов
func (r *ParameterRedactor) needsRedaction(m map[string]any) bool {
	for k, v := range m {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if k == "parameters" {
			for pk := range child {
				if r.matchKey(pk) {
					return true
				}
			}
			continue
		}
		if r.needsRedaction(child) {
			return true
		}
	}
	return false
}

func (r *ParameterRedactor) walk(m map[string]any) {
	for k, v := range m {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if k == "parameters" {
			for pk, pv := range child {
				if s, ok := pv.(string); ok && r.matchKey(pk) {
					child[pk] = r.mask(s)
				}
			}
			continue
		}
		r.walk(child)
	}
}

func (r *ParameterRedactor) matchKey(key string) bool {
	key = strings.ToLower(key)
	for _, p := range r.keys {
		if p.Match(key) {
			return true
		}
	}
	return false
}

func (r *ParameterRedactor) mask(value string) string {
	if value == "" {
		return value
	}
	switch r.pattern {
	case MaskPartial:
		if len(value) <= 2 {
			return "***"
		}
		return value[:1] + "***" + value[len(value)-1:]
	case MaskFirst2Last2:
		if len(value) <= 4 {
			return strings.Repeat("*", len(value))
		}
		return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
	default:
		return "****"
	}
}

package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Item - непрозрачная полезная нагрузка записи (database/table/partition input).
// Ключи совпадают с полями контракта bulk-импорта каталога (name, values,
// storageDescriptor, parameters, ...).
type Item map[string]any

// Name возвращает item.name или пустую строку
func (it Item) Name() string {
	s, _ := it["name"].(string)
	return s
}

// Values возвращает item.values как срез строк.
// Поддерживает []string (после извлечения) и []any (после json.Unmarshal).
func (it Item) Values() []string {
	switch v := it["values"].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, scalarString(e))
		}
		return out
	default:
		return nil
	}
}

// Clone возвращает глубокую копию документа
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	return cloneValue(map[string]any(it)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Item:
		return Item(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		s := make([]string, len(t))
		copy(s, t)
		return s
	default:
		return v
	}
}

// ToItem конвертирует типизированную модель (DatabaseInput, TableInput,
// PartitionInput) в Item через JSON
func ToItem(v any) (Item, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return it, nil
}

// DecodeItem декодирует Item в типизированную модель
func DecodeItem(it Item, dst any) error {
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode item: %w", err)
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

package metastore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Драйверы возвращают разные типы для одних и тех же колонок:
// MySQL в текстовом протоколе отдает []byte, pgx - int64/bool/string,
// SQLite - int64/string. Функции ниже сводят их к одному виду.

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected integer type %T", v)
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case []byte:
		// BIT(1) в MySQL приходит как один байт 0x00/0x01
		if len(t) == 1 && t[0] <= 1 {
			return t[0] == 1
		}
		return parseBoolString(string(t))
	case string:
		return parseBoolString(t)
	default:
		return false
	}
}

func parseBoolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}

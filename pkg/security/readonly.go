package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnsafeQuery - запрос к метастору изменяет данные или не является одной командой
var ErrUnsafeQuery = errors.New("unsafe metastore query")

// forbidden - ключевые слова, которых не может быть в чтении метастора
var forbidden = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "TRUNCATE": true, "MERGE": true, "REPLACE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "RENAME": true,
	"GRANT": true, "REVOKE": true,
	"EXEC": true, "EXECUTE": true, "CALL": true,
	"PRAGMA": true, "ATTACH": true, "DETACH": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true,
	"LOCK": true, "INTO": true,
}

// CheckReadOnly проверяет, что запрос только читает базу метастора:
// одна команда SELECT или WITH, без комментариев и изменяющих ключевых слов.
//
// Слова сравниваются целиком, поэтому идентификаторы вида CREATE_TIME
// или "CREATE_TIME" не считаются ключевыми.
func CheckReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")

	if strings.Contains(q, ";") {
		return fmt.Errorf("%w: multiple statements", ErrUnsafeQuery)
	}
	if strings.Contains(q, "--") || strings.Contains(q, "/*") {
		return fmt.Errorf("%w: comments are not allowed", ErrUnsafeQuery)
	}

	words := keywords(q)
	if len(words) == 0 {
		return fmt.Errorf("%w: empty query", ErrUnsafeQuery)
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return fmt.Errorf("%w: %s is not a read", ErrUnsafeQuery, words[0])
	}
	for _, w := range words {
		if forbidden[w] {
			return fmt.Errorf("%w: keyword %s", ErrUnsafeQuery, w)
		}
	}
	return nil
}

// keywords возвращает слова запроса вне кавычек в верхнем регистре
func keywords(q string) []string {
	var (
		words []string
		word  strings.Builder
		quote rune
	)
	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for _, r := range q {
		switch {
		case quote != 0:
			if r == quote || (quote == '[' && r == ']') {
				quote = 0
			}
		case r == '"' || r == '`' || r == '\'' || r == '[':
			flush()
			quote = r
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

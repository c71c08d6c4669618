package transform

import (
	"strings"
	"unicode/utf8"
)

// LikePattern - скомпилированный SQL LIKE шаблон.
// Компилируется один раз на терм фильтра и переиспользуется для всех записей.
type LikePattern struct {
	pattern string
	literal bool
}

// CompileLike готовит SQL LIKE шаблон: % - любая последовательность,
// _ - ровно один символ, остальное сравнивается побайтно.
// Сопоставление регистрозависимое и якорное.
func CompileLike(pattern string) *LikePattern {
	return &LikePattern{pattern: pattern, literal: !strings.ContainsAny(pattern, "%_")}
}

// Match проверяет соответствие значения шаблону
func (p *LikePattern) Match(value string) bool {
	if p.literal {
		return value == p.pattern
	}
	return likeMatch(p.pattern, value)
}

// String возвращает исходный шаблон
func (p *LikePattern) String() string {
	return p.pattern
}

// likeMatch сопоставляет побайтно с откатом к последнему %.
// Невалидный UTF-8 байт считается одним символом для _.
func likeMatch(pattern, value string) bool {
	px, vx := 0, 0
	starPx, starVx := -1, 0
	for px < len(pattern) || vx < len(value) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '%':
				starPx, starVx = px, vx
				px++
				continue
			case '_':
				if vx < len(value) {
					_, w := utf8.DecodeRuneInString(value[vx:])
					px++
					vx += w
					continue
				}
			default:
				if vx < len(value) && value[vx] == c {
					px++
					vx++
					continue
				}
			}
		}
		// % забирает еще один символ
		if starPx >= 0 && starVx < len(value) {
			_, w := utf8.DecodeRuneInString(value[starVx:])
			starVx += w
			px, vx = starPx+1, starVx
			continue
		}
		return false
	}
	return true
}

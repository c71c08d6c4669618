package catalog

import "errors"

var (
	// ErrInvalidFilterSyntax - токен фильтра без разделителя "." между базой и таблицей
	ErrInvalidFilterSyntax = errors.New("invalid filter syntax")

	// ErrInvalidConfiguration - неположительный размер батча или
	// отсутствуют обязательные для режима параметры
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrSchemaMismatch - запись снапшота не соответствует ожидаемой схеме
	ErrSchemaMismatch = errors.New("schema mismatch")
)

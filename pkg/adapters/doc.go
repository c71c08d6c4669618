/*
Package adapters предоставляет подключения к реляционным базам, в которых
хранится Hive metastore: MySQL, PostgreSQL, MS SQL Server и SQLite.

Каждый адаптер регистрируется в глобальной фабрике в init() своего пакета;
приложение импортирует нужные пакеты через blank import и создает
подключение через adapters.New:

	import _ "github.com/ruslano69/hms-migrator/pkg/adapters/mysql"

	adapter, err := adapters.New(ctx, adapters.Config{
	    Type: "mysql",
	    DSN:  "hive:secret@tcp(metastore:3306)/hive?parseTime=true",
	})

Адаптер отдает строки запроса как срезы значений ([]any), а также
знает правила квотирования идентификаторов своего диалекта: схема
метастора использует имена в верхнем регистре ("DBS", "TBLS"), которые
в PostgreSQL нужно заключать в кавычки.
*/
package adapters

// Package catalog описывает модель данных миграции метаданных Hive metastore
// в каталог: записи баз данных, таблиц и партиций, единицы bulk-импорта
// и таксономию ошибок, общую для всех стадий.
//
// Полезная нагрузка записи (Item) хранится как обобщенный документ
// ключ-значение: внутренняя логика фильтрации, дедупликации и батчинга
// опирается только на имена и значения партиций, а полная структура
// передается загрузчику без изменений.
package catalog

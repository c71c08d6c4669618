// Package metastore извлекает базы, таблицы и партиции напрямую из таблиц
// реляционной базы Hive metastore (DBS, TBLS, SDS, PARTITIONS, ...) и
// собирает из них записи каталога.
//
// Каждая таблица метастора читается одним запросом без параметров;
// связи (SD_ID, CD_ID, SERDE_ID, ...) разрешаются в памяти. Так запросы
// остаются одинаковыми для всех диалектов, отличается только квотирование.
package metastore

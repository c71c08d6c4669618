// Package snapshot читает и пишет JSON Lines снапшоты метастора:
// три набора данных (databases, tables, partitions), каждый - файл или
// каталог part-файлов на локальном диске или в S3.
//
// Формат строк:
//
//	databases:  {"type": "database", "item": {"name": "...", ...}}
//	tables:     {"type": "table", "database": "...", "item": {"name": "...", ...}}
//	partitions: {"database": "...", "table": "...", "item": {"values": ["..."], ...}}
//
// Файлы с расширением .zst или .gz распаковываются. Если в каталоге набора
// есть _manifest.json, контрольные суммы xxh3 файлов проверяются до разбора.
package snapshot

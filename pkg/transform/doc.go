// Package transform реализует движок трансформации и батчинга:
// фильтрацию по LIKE-шаблонам, дедупликацию по составному ключу,
// разбиение партиций на батчи bulk-импорта и проекцию записей
// в конверты контракта импорта каталога.
//
// Все функции чистые: входные коллекции не изменяются, каждая стадия
// возвращает новый срез. Ввод-вывод отсутствует.
package transform

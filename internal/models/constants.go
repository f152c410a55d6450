package models

const DateLayout = "2006-01-02"

const (
	// DefaultPageSize размер страницы списка по умолчанию
	DefaultPageSize = 10

	// MaxPageSize верхняя граница размера страницы
	MaxPageSize = 100

	// DefaultLockTTL время жизни блокировки комнаты в миллисекундах
	DefaultLockTTL = 10_000

	// DefaultExportRangeDays максимальный период выгрузки в днях
	DefaultExportRangeDays = 366
)

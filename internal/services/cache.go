package services

// Ключи кэша витрины в Redis. Любая запись, меняющая остатки или товары,
// обязана инвалидировать затронутые ключи.
const (
	cacheKeyProducts   = "visualbites:products"
	cacheKeyOrderStats = "visualbites:orders:stats"
)

package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "pipewatch"
)

// Ключи персистентного состояния клиентской сессии.
// Хранится ровно то, что переживает перезапуск консоли: токен и режим.
const (
	RedisKeySessionToken = RedisNamespace + ":session:token"
	RedisKeyAckedMode    = RedisNamespace + ":session:acked_mode"
)

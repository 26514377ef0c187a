// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — метрики Prometheus плюс ограниченный буфер
//     последних значений для интроспекции без скрейпа
//
// Все воркеры используют единый формат логирования и экспортируют
// метрики на /metrics endpoint.
package telemetry

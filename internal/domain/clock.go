package domain

import "time"

// Clock — инъецируемый источник времени. Доменные методы принимают
// момент времени явно; Clock живёт на уровне приложения и подменяется
// в тестах детерминированной реализацией.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock возвращает часы, читающие системное время в UTC.
func SystemClock() Clock { return systemClock{} }

// ClockFunc адаптирует функцию к интерфейсу Clock.
type ClockFunc func() time.Time

// Now возвращает результат вызова функции.
func (f ClockFunc) Now() time.Time { return f() }

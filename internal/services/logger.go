package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the emitting service.
type ServiceLogger struct {
	zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{Logger: log.With().Str("service", svc.ID()).Logger()}
}

// Collection returns a child logger scoped to one pool.
func (l *ServiceLogger) Collection(collectionID string) *zerolog.Logger {
	child := l.With().Str("collection", collectionID).Logger()
	return &child
}

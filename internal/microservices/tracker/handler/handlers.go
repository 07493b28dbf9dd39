package handler

import (
	"production-tracker/internal/common/logger"
	"production-tracker/internal/microservices/tracker/service"
)

type Handler struct {
	TrackerHandler *TrackerHandler
}

func New(svc service.TrackerServiceInterface, lg *logger.Logger, managerGroup string) *Handler {
	return &Handler{
		TrackerHandler: NewTrackerHandler(svc, lg, managerGroup),
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/municipal-service/internal/api/dto"
	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/service"
)

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListUnread GET /notifications.
func (h *NotificationsHandler) ListUnread(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	notifications, err := h.service.ListUnread(c.UserContext(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.NewNotificationResponse(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	notification, err := h.service.MarkRead(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(notification)})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	count, err := h.service.MarkAllRead(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": count}})
}

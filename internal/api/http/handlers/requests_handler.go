package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/municipal-service/internal/api/dto"
	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/service"
	"github.com/civicdesk/municipal-service/internal/validation"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// RequestsHandler manages service request endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	created, err := h.service.CreateRequest(c.UserContext(), principal, service.RequestCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestSummary(created)})
}

// ListRequests GET /requests. Citizens see their own, staff see all.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	filter, err := parseRequestQuery(c)
	if err != nil {
		return err
	}

	var requests []domain.ServiceRequest
	if principal != nil && principal.Role.IsStaff() && c.Query("scope") != "mine" {
		requests, err = h.service.ListAll(c.UserContext(), principal, filter)
	} else {
		requests, err = h.service.ListMine(c.UserContext(), principal, filter)
	}
	if err != nil {
		return err
	}

	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	detail, err := h.service.View(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestDetail(&detail.Request, detail.History)})
}

// UpdateStatus POST /requests/:id/status.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.service.Transition(c.UserContext(), principal, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Request status updated to " + updated.Status.Label() + ".",
		"data":    dto.NewRequestSummary(updated),
	})
}

func parseRequestQuery(c *fiber.Ctx) (service.RequestListFilter, error) {
	filter := service.RequestListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, ok := domain.ParseRequestStatus(part)
			if !ok {
				return filter, apperrors.NewInvalidStatus(strings.TrimSpace(part))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = &category
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	v := validation.Violations{}
	filter.CreatedFrom = parseTime("created_from", c.Query("created_from"), v)
	filter.CreatedTo = parseTime("created_to", c.Query("created_to"), v)
	if err := v.Err(); err != nil {
		return filter, err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

// parseTime records a violation for anything that is not RFC 3339.
func parseTime(field, val string, v validation.Violations) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		v[field] = "invalid_timestamp"
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/municipal-service/internal/api/dto"
	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/service"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// CatalogHandler serves the public /api catalog. Responses are bare JSON
// arrays and objects, the shape the public site already consumes.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListProjects(c *fiber.Ctx) error {
	items, err := h.catalog.ListProjects(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewProjectPayload))
}

func (h *CatalogHandler) GetProject(c *fiber.Ctx) error {
	project, err := h.catalog.GetProject(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProjectPayload(*project))
}

func (h *CatalogHandler) CreateProject(c *fiber.Ctx) error {
	return h.saveProject(c, "")
}

func (h *CatalogHandler) UpdateProject(c *fiber.Ctx) error {
	return h.saveProject(c, c.Params("id"))
}

func (h *CatalogHandler) saveProject(c *fiber.Ctx, id string) error {
	var req dto.ProjectPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	project := req.ToDomain()
	project.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveProject(c.UserContext(), principal, &project); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewProjectPayload(project))
}

// DeleteProject DELETE /api/projects/:id.
func (h *CatalogHandler) DeleteProject(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.DeleteProject(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *CatalogHandler) ListDepartments(c *fiber.Ctx) error {
	items, err := h.catalog.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewDepartmentPayload))
}

func (h *CatalogHandler) GetDepartment(c *fiber.Ctx) error {
	dept, err := h.catalog.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentPayload(*dept))
}

func (h *CatalogHandler) CreateDepartment(c *fiber.Ctx) error {
	return h.saveDepartment(c, "")
}

func (h *CatalogHandler) UpdateDepartment(c *fiber.Ctx) error {
	return h.saveDepartment(c, c.Params("id"))
}

func (h *CatalogHandler) saveDepartment(c *fiber.Ctx, id string) error {
	var req dto.DepartmentPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept := req.ToDomain()
	dept.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveDepartment(c.UserContext(), principal, &dept); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewDepartmentPayload(dept))
}

func (h *CatalogHandler) ListAnnouncements(c *fiber.Ctx) error {
	items, err := h.catalog.ListAnnouncements(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewAnnouncementPayload))
}

func (h *CatalogHandler) CreateAnnouncement(c *fiber.Ctx) error {
	return h.saveAnnouncement(c, "")
}

func (h *CatalogHandler) UpdateAnnouncement(c *fiber.Ctx) error {
	return h.saveAnnouncement(c, c.Params("id"))
}

func (h *CatalogHandler) saveAnnouncement(c *fiber.Ctx, id string) error {
	var req dto.AnnouncementPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	announcement := req.ToDomain()
	announcement.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveAnnouncement(c.UserContext(), principal, &announcement); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewAnnouncementPayload(announcement))
}

func (h *CatalogHandler) ListDeliberations(c *fiber.Ctx) error {
	items, err := h.catalog.ListDeliberations(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewDeliberationPayload))
}

func (h *CatalogHandler) CreateDeliberation(c *fiber.Ctx) error {
	return h.saveDeliberation(c, "")
}

func (h *CatalogHandler) UpdateDeliberation(c *fiber.Ctx) error {
	return h.saveDeliberation(c, c.Params("id"))
}

func (h *CatalogHandler) saveDeliberation(c *fiber.Ctx, id string) error {
	var req dto.DeliberationPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	deliberation := req.ToDomain()
	deliberation.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveDeliberation(c.UserContext(), principal, &deliberation); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewDeliberationPayload(deliberation))
}

func (h *CatalogHandler) ListDecisions(c *fiber.Ctx) error {
	items, err := h.catalog.ListDecisions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewDecisionPayload))
}

func (h *CatalogHandler) CreateDecision(c *fiber.Ctx) error {
	return h.saveDecision(c, "")
}

func (h *CatalogHandler) UpdateDecision(c *fiber.Ctx) error {
	return h.saveDecision(c, c.Params("id"))
}

func (h *CatalogHandler) saveDecision(c *fiber.Ctx, id string) error {
	var req dto.DecisionPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	decision := req.ToDomain()
	decision.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveDecision(c.UserContext(), principal, &decision); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewDecisionPayload(decision))
}

func (h *CatalogHandler) ListServices(c *fiber.Ctx) error {
	items, err := h.catalog.ListServices(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewServicePayload))
}

func (h *CatalogHandler) CreateService(c *fiber.Ctx) error {
	return h.saveService(c, "")
}

func (h *CatalogHandler) UpdateService(c *fiber.Ctx) error {
	return h.saveService(c, c.Params("id"))
}

func (h *CatalogHandler) saveService(c *fiber.Ctx, id string) error {
	var req dto.ServicePayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	svc := req.ToDomain()
	svc.ID = id
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.SaveService(c.UserContext(), principal, &svc); err != nil {
		return err
	}
	return c.Status(saveStatus(id)).JSON(dto.NewServicePayload(svc))
}

func (h *CatalogHandler) ListSettings(c *fiber.Ctx) error {
	items, err := h.catalog.ListSettings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(mapSlice(items, dto.NewSettingPayload))
}

// PutSetting PUT /api/settings/:name.
func (h *CatalogHandler) PutSetting(c *fiber.Ctx) error {
	var req dto.SettingPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	setting := domain.SiteSetting{Name: c.Params("name"), Value: req.Value}
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.catalog.UpsertSetting(c.UserContext(), principal, &setting); err != nil {
		return err
	}
	return c.JSON(dto.NewSettingPayload(setting))
}

func saveStatus(id string) int {
	if id == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

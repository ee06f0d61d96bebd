package handlers

import (
	"strconv"

	"haldor/internal/middleware"
	"haldor/internal/models"
	"haldor/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// LocationHandler serves the region hierarchy and the user's saved addresses.
type LocationHandler struct {
	service  *services.LocationService
	validate *validator.Validate
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(service *services.LocationService) *LocationHandler {
	return &LocationHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the location routes.
func (h *LocationHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	locationRoutes := router.Group("/locations")
	locationRoutes.Get("/regions", h.HandleRegions)
	locationRoutes.Get("/provinces", h.HandleProvinces)
	locationRoutes.Get("/communes", h.HandleCommunes)

	addressRoutes := locationRoutes.Group("/addresses", guards.Required)
	addressRoutes.Get("/", h.HandleListAddresses)
	addressRoutes.Post("/", h.HandleCreateAddress)
	addressRoutes.Put("/:id", h.HandleUpdateAddress)
	addressRoutes.Delete("/:id", h.HandleDeleteAddress)
}

// HandleRegions lists every region.
func (h *LocationHandler) HandleRegions(c *fiber.Ctx) error {
	regions, err := h.service.Regions(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve regions")
	}
	return c.JSON(regions)
}

// HandleProvinces lists the provinces of ?region=.
func (h *LocationHandler) HandleProvinces(c *fiber.Ctx) error {
	regionID, err := strconv.ParseUint(c.Query("region"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'region' must be a numeric id",
		})
	}
	provinces, err := h.service.Provinces(c.UserContext(), uint(regionID))
	if err != nil {
		return respondError(c, err, "Could not retrieve provinces")
	}
	return c.JSON(provinces)
}

// HandleCommunes lists the communes of ?province=.
func (h *LocationHandler) HandleCommunes(c *fiber.Ctx) error {
	provinceID, err := strconv.ParseUint(c.Query("province"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'province' must be a numeric id",
		})
	}
	communes, err := h.service.Communes(c.UserContext(), uint(provinceID))
	if err != nil {
		return respondError(c, err, "Could not retrieve communes")
	}
	return c.JSON(communes)
}

func (h *LocationHandler) HandleListAddresses(c *fiber.Ctx) error {
	addresses, err := h.service.ListAddresses(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve addresses")
	}
	return c.JSON(addresses)
}

func (h *LocationHandler) HandleCreateAddress(c *fiber.Ctx) error {
	var address models.Address
	if ok, err := parseAndValidate(c, h.validate, &address); !ok {
		return err
	}
	if err := h.service.CreateAddress(c.UserContext(), middleware.UserID(c), &address); err != nil {
		return respondError(c, err, "Could not save address")
	}
	return c.Status(fiber.StatusCreated).JSON(address)
}

func (h *LocationHandler) HandleUpdateAddress(c *fiber.Ctx) error {
	var address models.Address
	if ok, err := parseAndValidate(c, h.validate, &address); !ok {
		return err
	}
	if err := h.service.UpdateAddress(c.UserContext(), middleware.UserID(c), c.Params("id"), &address); err != nil {
		return respondError(c, err, "Could not update address")
	}
	return c.JSON(address)
}

func (h *LocationHandler) HandleDeleteAddress(c *fiber.Ctx) error {
	if err := h.service.DeleteAddress(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete address")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"fmt"
	"io"
	"log"
	"strings"

	"wellnest/internal/middleware"
	"wellnest/internal/models"
	"wellnest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PrescriptionHandler handles HTTP requests for prescription upload and review.
type PrescriptionHandler struct {
	service        *services.PrescriptionService
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(service *services.PrescriptionService, maxUploadBytes int64) *PrescriptionHandler {
	return &PrescriptionHandler{
		service:        service,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers the buyer-facing prescription routes with the Fiber app.
func (h *PrescriptionHandler) RegisterRoutes(router fiber.Router) {
	prescriptionRoutes := router.Group("/prescriptions")
	prescriptionRoutes.Post("/", h.HandleSubmit)
	prescriptionRoutes.Get("/", h.HandleListOwn)
	prescriptionRoutes.Get("/:id", h.HandleGet)
	prescriptionRoutes.Get("/:id/file", h.HandleDownload)
}

// RegisterReviewRoutes registers the reviewer routes. router should already be
// restricted to pharmacists and admins.
func (h *PrescriptionHandler) RegisterReviewRoutes(router fiber.Router) {
	router.Get("/prescriptions", h.HandleListForReview)
	router.Patch("/prescriptions/:id", h.HandleTransition)
}

// HandleSubmit accepts a multipart upload with fields patientName and file.
func (h *PrescriptionHandler) HandleSubmit(c *fiber.Ctx) error {
	patientName := c.FormValue("patientName")
	if patientName == "" {
		patientName = c.FormValue("patient_name")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("Error reading prescription upload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A prescription file is required",
			"code":    "validation_failed",
		})
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"message": fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadBytes),
			"code":    "file_too_large",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, "read upload", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, "read upload", err)
	}

	prescription, err := h.service.Submit(c.UserContext(), middleware.CurrentUser(c), patientName, services.UploadedFile{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return respondError(c, "submit prescription", err)
	}
	return c.Status(fiber.StatusCreated).JSON(prescription)
}

// HandleListOwn returns the caller's prescriptions.
func (h *PrescriptionHandler) HandleListOwn(c *fiber.Ctx) error {
	prescriptions, err := h.service.ListOwn(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, "retrieve prescriptions", err)
	}
	return c.JSON(prescriptions)
}

// HandleGet returns one prescription.
func (h *PrescriptionHandler) HandleGet(c *fiber.Ctx) error {
	prescription, err := h.service.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, "retrieve prescription", err)
	}
	return c.JSON(prescription)
}

// HandleDownload streams the uploaded document.
func (h *PrescriptionHandler) HandleDownload(c *fiber.Ctx) error {
	prescription, data, err := h.service.Document(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return respondError(c, "retrieve prescription file", err)
	}
	contentType := prescription.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(prescription.FileName, `"`, "")))
	return c.Send(data)
}

// HandleListForReview returns prescriptions for reviewers, optionally filtered by ?status=.
func (h *PrescriptionHandler) HandleListForReview(c *fiber.Ctx) error {
	status := models.PrescriptionStatus(c.Query("status"))
	prescriptions, err := h.service.ListForReview(c.UserContext(), middleware.CurrentUser(c), status)
	if err != nil {
		return respondError(c, "retrieve prescriptions", err)
	}
	return c.JSON(prescriptions)
}

// HandleTransition moves a prescription to the requested status.
func (h *PrescriptionHandler) HandleTransition(c *fiber.Ctx) error {
	var req services.TransitionRequest
	if handled, err := parseBody(c, h.validate, &req); handled {
		return err
	}

	prescription, err := h.service.Transition(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, "update prescription", err)
	}
	return c.JSON(prescription)
}

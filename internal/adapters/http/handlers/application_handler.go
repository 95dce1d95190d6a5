package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"campus-admissions/internal/adapters/http/middleware"
	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/core/services"
	"campus-admissions/internal/pkg/logger"
	"campus-admissions/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// maxDocumentSize caps a single uploaded document
const maxDocumentSize = 5 * 1024 * 1024

var allowedDocumentExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// ApplicationService is the lifecycle engine as seen by the HTTP layer
type ApplicationService interface {
	Create(ctx context.Context, input *services.CreateApplicationInput) (*models.Application, error)
	Get(ctx context.Context, id uint64) (*models.Application, error)
	GetHistory(ctx context.Context, id uint64) ([]*models.ApplicationStatusHistory, error)
	ChangeStatus(ctx context.Context, id uint64, input *services.ChangeStatusInput, actorID uint64) (*models.Application, error)
	UpdateDetails(ctx context.Context, id uint64, input *services.UpdateApplicationInput, actorID uint64) (*models.Application, error)
	SoftDelete(ctx context.Context, id uint64) error
	BulkChangeStatus(ctx context.Context, ids []uint64, input *services.ChangeStatusInput, actorID uint64) (*services.BulkResult, error)
	BulkSoftDelete(ctx context.Context, ids []uint64) (*services.BulkResult, error)
}

// FileStore stages uploaded documents
type FileStore interface {
	Save(folder, originalName string, r io.Reader) (string, error)
	Remove(path string) error
}

// RefCodec maps internal ids to public references
type RefCodec interface {
	EncodeID(id uint64) (string, error)
	DecodeID(token string) (uint64, error)
}

// ApplicationHandler handles application endpoints
type ApplicationHandler struct {
	service ApplicationService
	files   FileStore
	codec   RefCodec
	log     *logger.Logger
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(service ApplicationService, files FileStore, codec RefCodec, log *logger.Logger) *ApplicationHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ApplicationHandler{service: service, files: files, codec: codec, log: log}
}

// ApplicationView is an application as returned by the API, keyed by its public reference
type ApplicationView struct {
	Reference string `json:"reference"`
	*models.Application
}

// HistoryView is one audit ledger row as returned by the API
type HistoryView struct {
	Reference string `json:"reference"`
	*models.ApplicationStatusHistory
}

// ApplicationFieldsRequest carries the applicant fields of a create or update request
type ApplicationFieldsRequest struct {
	FullName          string `json:"full_name" form:"full_name"`
	DateOfBirth       string `json:"date_of_birth" form:"date_of_birth"`
	Gender            string `json:"gender" form:"gender"`
	Nationality       string `json:"nationality" form:"nationality"`
	CitizenshipNumber string `json:"citizenship_number" form:"citizenship_number"`
	Email             string `json:"email" form:"email"`
	Phone             string `json:"phone" form:"phone"`
	PermanentAddress  string `json:"permanent_address" form:"permanent_address"`
	TemporaryAddress  string `json:"temporary_address" form:"temporary_address"`
	FatherName        string `json:"father_name" form:"father_name"`
	MotherName        string `json:"mother_name" form:"mother_name"`
	GuardianName      string `json:"guardian_name" form:"guardian_name"`
	GuardianRelation  string `json:"guardian_relation" form:"guardian_relation"`
	GuardianPhone     string `json:"guardian_phone" form:"guardian_phone"`
	ProgramApplied    string `json:"program_applied" form:"program_applied"`
	PreferredShift    string `json:"preferred_shift" form:"preferred_shift"`
	DeclarationAgreed bool   `json:"declaration_agreed" form:"declaration_agreed"`
}

// CreateApplicationRequest is the multipart form of a new application.
// EducationRecords is a JSON array encoded as a single form value.
type CreateApplicationRequest struct {
	ApplicationFieldsRequest
	Status           string `form:"status"`
	EducationRecords string `form:"education_records"`
}

// UpdateApplicationRequest is the JSON body of a detail edit
type UpdateApplicationRequest struct {
	ApplicationFieldsRequest
	EducationRecords *[]services.EducationInput `json:"education_records"`
}

// ChangeStatusRequest is the JSON body of a status change
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// BulkStatusRequest is the JSON body of a bulk status change
type BulkStatusRequest struct {
	References []string `json:"references"`
	ChangeStatusRequest
}

// BulkDeleteRequest is the JSON body of a bulk delete
type BulkDeleteRequest struct {
	References []string `json:"references"`
}

// Create handles a public application submission
// @Summary Submit application
// @Description Create a draft or submitted application with document uploads
// @Tags Applications
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	var req CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	fields, err := req.toFields()
	if err != nil {
		return response.FromError(c, err)
	}

	status := domain.StatusDraft
	if strings.TrimSpace(req.Status) != "" {
		status, err = domain.ParseStatus(req.Status)
		if err != nil {
			return response.FromError(c, domain.NewValidationError("invalid application input", map[string]string{"status": "unknown status"}))
		}
	}

	var education []services.EducationInput
	if strings.TrimSpace(req.EducationRecords) != "" {
		if err := json.Unmarshal([]byte(req.EducationRecords), &education); err != nil {
			return response.FromError(c, domain.NewValidationError("invalid application input", map[string]string{"education_records": "must be a JSON array"}))
		}
	}

	docs, err := h.stageDocuments(c)
	if err != nil {
		return response.FromError(c, err)
	}

	app, err := h.service.Create(c.UserContext(), &services.CreateApplicationInput{
		ApplicationFields: fields,
		Status:            status,
		EducationRecords:  education,
		Documents:         docs,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	view, err := h.view(app)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Application created successfully", view)
}

// stageDocuments saves every known document slot present in the form.
// On any failure the files saved so far are removed.
func (h *ApplicationHandler) stageDocuments(c *fiber.Ctx) (map[domain.DocumentType]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, domain.ErrInvalidInput
	}

	staged := map[domain.DocumentType]string{}
	rollback := func() {
		for _, p := range staged {
			if err := h.files.Remove(p); err != nil {
				h.log.WithError(err).WithField("path", p).Warn("failed to remove staged upload")
			}
		}
	}

	for _, docType := range domain.DocumentTypes {
		headers := form.File[string(docType)]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		if msg := checkUpload(fh); msg != "" {
			rollback()
			return nil, domain.NewValidationError("invalid document upload", map[string]string{"documents." + string(docType): msg})
		}
		path, err := h.saveUpload(string(docType), fh)
		if err != nil {
			rollback()
			h.log.WithError(err).WithField("document_type", docType).Error("failed to stage upload")
			return nil, err
		}
		staged[docType] = path
	}
	return staged, nil
}

func (h *ApplicationHandler) saveUpload(folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.files.Save(folder, fh.Filename, f)
}

func checkUpload(fh *multipart.FileHeader) string {
	if fh.Size > maxDocumentSize {
		return "file is larger than 5MB"
	}
	if !allowedDocumentExt[strings.ToLower(filepath.Ext(fh.Filename))] {
		return "only jpg, png and pdf files are accepted"
	}
	return ""
}

// Get returns the full application aggregate
// @Summary Get application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Application reference"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/applications/{ref} [get]
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	id, err := h.decode(c.Params("ref"))
	if err != nil {
		return response.FromError(c, err)
	}

	app, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}

	view, err := h.view(app)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application retrieved successfully", view)
}

// History returns the audit ledger of an application
// @Summary Get application history
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Application reference"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/applications/{ref}/history [get]
func (h *ApplicationHandler) History(c *fiber.Ctx) error {
	id, err := h.decode(c.Params("ref"))
	if err != nil {
		return response.FromError(c, err)
	}

	rows, err := h.service.GetHistory(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}

	views := make([]HistoryView, 0, len(rows))
	for _, row := range rows {
		ref, err := h.codec.EncodeID(row.ID)
		if err != nil {
			return response.FromError(c, err)
		}
		views = append(views, HistoryView{Reference: ref, ApplicationStatusHistory: row})
	}
	return response.Success(c, "History retrieved successfully", views)
}

// ChangeStatus moves an application to a new status
// @Summary Change application status
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Application reference"
// @Param body body ChangeStatusRequest true "New status"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/applications/{ref}/status [patch]
func (h *ApplicationHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := h.decode(c.Params("ref"))
	if err != nil {
		return response.FromError(c, err)
	}

	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	input, err := req.toInput()
	if err != nil {
		return response.FromError(c, err)
	}

	app, err := h.service.ChangeStatus(c.UserContext(), id, input, middleware.ActorID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	view, err := h.view(app)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application status updated", view)
}

// Update edits the applicant fields and optionally replaces education records
// @Summary Update application details
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Application reference"
// @Param body body UpdateApplicationRequest true "Application fields"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/applications/{ref} [put]
func (h *ApplicationHandler) Update(c *fiber.Ctx) error {
	id, err := h.decode(c.Params("ref"))
	if err != nil {
		return response.FromError(c, err)
	}

	var req UpdateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	fields, err := req.toFields()
	if err != nil {
		return response.FromError(c, err)
	}

	app, err := h.service.UpdateDetails(c.UserContext(), id, &services.UpdateApplicationInput{
		ApplicationFields: fields,
		EducationRecords:  req.EducationRecords,
	}, middleware.ActorID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	view, err := h.view(app)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application updated successfully", view)
}

// Delete soft deletes an application
// @Summary Delete application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param ref path string true "Application reference"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/applications/{ref} [delete]
func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	id, err := h.decode(c.Params("ref"))
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.service.SoftDelete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application deleted successfully", nil)
}

// BulkStatus changes the status of many applications at once
// @Summary Bulk change application status
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkStatusRequest true "References and new status"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/applications/bulk/status [post]
func (h *ApplicationHandler) BulkStatus(c *fiber.Ctx) error {
	var req BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.References) == 0 {
		return response.FromError(c, domain.NewValidationError("no applications selected", map[string]string{"references": "is required"}))
	}
	input, err := req.toInput()
	if err != nil {
		return response.FromError(c, err)
	}

	ids := h.decodeAll(req.References)
	result := &services.BulkResult{}
	if len(ids) > 0 {
		result, err = h.service.BulkChangeStatus(c.UserContext(), ids, input, middleware.ActorID(c))
		if err != nil {
			return response.FromError(c, err)
		}
	}
	result.TotalRequested = len(req.References)

	return response.Success(c, "Bulk status update completed", result)
}

// BulkDelete soft deletes many applications at once
// @Summary Bulk delete applications
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkDeleteRequest true "References"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/applications/bulk/delete [post]
func (h *ApplicationHandler) BulkDelete(c *fiber.Ctx) error {
	var req BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.References) == 0 {
		return response.FromError(c, domain.NewValidationError("no applications selected", map[string]string{"references": "is required"}))
	}

	ids := h.decodeAll(req.References)
	result := &services.BulkResult{}
	if len(ids) > 0 {
		var err error
		result, err = h.service.BulkSoftDelete(c.UserContext(), ids)
		if err != nil {
			return response.FromError(c, err)
		}
	}
	result.TotalRequested = len(req.References)

	return response.Success(c, "Bulk delete completed", result)
}

func (h *ApplicationHandler) decode(ref string) (uint64, error) {
	id, err := h.codec.DecodeID(strings.TrimSpace(ref))
	if err != nil {
		h.log.WithField("reference", ref).Debug("rejected application reference")
		return 0, domain.ErrNotFound
	}
	return id, nil
}

// decodeAll drops references that do not decode; they still count as requested
func (h *ApplicationHandler) decodeAll(refs []string) []uint64 {
	ids := make([]uint64, 0, len(refs))
	for _, ref := range refs {
		if id, err := h.decode(ref); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *ApplicationHandler) view(app *models.Application) (*ApplicationView, error) {
	ref, err := h.codec.EncodeID(app.ID)
	if err != nil {
		return nil, err
	}
	return &ApplicationView{Reference: ref, Application: app}, nil
}

func (r *ChangeStatusRequest) toInput() (*services.ChangeStatusInput, error) {
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return nil, domain.NewValidationError("invalid status change", map[string]string{"status": "unknown status"})
	}
	return &services.ChangeStatusInput{
		Status: status,
		Reason: strings.TrimSpace(r.Reason),
		Notes:  strings.TrimSpace(r.Notes),
	}, nil
}

func (r *ApplicationFieldsRequest) toFields() (services.ApplicationFields, error) {
	f := services.ApplicationFields{
		FullName:          strings.TrimSpace(r.FullName),
		Gender:            strings.ToLower(strings.TrimSpace(r.Gender)),
		Nationality:       strings.TrimSpace(r.Nationality),
		CitizenshipNumber: strings.TrimSpace(r.CitizenshipNumber),
		Email:             strings.TrimSpace(r.Email),
		Phone:             strings.TrimSpace(r.Phone),
		PermanentAddress:  strings.TrimSpace(r.PermanentAddress),
		TemporaryAddress:  strings.TrimSpace(r.TemporaryAddress),
		FatherName:        strings.TrimSpace(r.FatherName),
		MotherName:        strings.TrimSpace(r.MotherName),
		GuardianName:      strings.TrimSpace(r.GuardianName),
		GuardianRelation:  strings.TrimSpace(r.GuardianRelation),
		GuardianPhone:     strings.TrimSpace(r.GuardianPhone),
		ProgramApplied:    strings.TrimSpace(r.ProgramApplied),
		PreferredShift:    strings.ToLower(strings.TrimSpace(r.PreferredShift)),
		DeclarationAgreed: r.DeclarationAgreed,
	}
	if dob := strings.TrimSpace(r.DateOfBirth); dob != "" {
		t, err := time.Parse("2006-01-02", dob)
		if err != nil {
			return f, domain.NewValidationError("invalid application input", map[string]string{"date_of_birth": "must be YYYY-MM-DD"})
		}
		f.DateOfBirth = &t
	}
	return f, nil
}

package pipeline

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/render"
	"github.com/Megamind2600/resumerocketpro/internal/shared/server/respond"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

var allowedContentTypes = map[string]struct{}{
	"application/pdf":          {},
	"application/octet-stream": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Handler wires HTTP handlers to the pipeline service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload-resume", h.uploadResume)
	rg.GET("/resume/:id/analysis", h.resumeAnalysis)
	rg.POST("/generate-job-links", h.generateJobLinks)
	rg.POST("/optimize-resume", h.optimizeResume)
	rg.GET("/optimization/:id", h.getOptimization)
	rg.POST("/create-payment-intent", h.createPaymentIntent)
	rg.GET("/payment-status/:optimizationId", h.paymentStatus)
	rg.GET("/download/:optimizationId/:type", h.download)
	rg.GET("/preview/:optimizationId/:type", h.preview)
}

func (h *Handler) uploadResume(c *gin.Context) {
	c.Set(respond.KeyStep, StepUpload)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)

	header, err := formFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, ErrFileTooLarge)
			return
		}
		respond.Error(c, http.StatusBadRequest, CodeValidation, "file is required", nil)
		return
	}
	if header.Size > MaxUploadSize {
		writeError(c, ErrFileTooLarge)
		return
	}
	if !allowedContentType(header.Header.Get("Content-Type")) {
		writeError(c, ErrUnsupportedFile)
		return
	}

	f, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "unable to read file", nil)
		return
	}

	result, err := h.Svc.UploadResume(c.Request.Context(), UploadInput{
		Email:    c.PostForm("email"),
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(respond.KeyResumeID, result.Resume.ID)
	respond.OK(c, UploadResponse{
		ResumeID: result.Resume.ID,
		Analysis: toAnalysisResponse(result.Analysis),
	})
}

// formFile accepts the file under "file" or the older "resume" field.
func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	header, err := c.FormFile("file")
	if err == nil {
		return header, nil
	}
	if !errors.Is(err, http.ErrMissingFile) {
		return nil, err
	}
	return c.FormFile("resume")
}

func allowedContentType(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return false
	}
	_, ok := allowedContentTypes[strings.ToLower(mediaType)]
	return ok
}

func (h *Handler) resumeAnalysis(c *gin.Context) {
	c.Set(respond.KeyStep, StepGetAnalysis)
	resumeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	c.Set(respond.KeyResumeID, resumeID)

	analysis, err := h.Svc.GetResumeAnalysis(c.Request.Context(), resumeID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ResumeAnalysisResponse{ResumeID: resumeID, Analysis: toAnalysisResponse(analysis)})
}

func (h *Handler) generateJobLinks(c *gin.Context) {
	c.Set(respond.KeyStep, StepJobLinks)
	var req jobLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "resumeId and selectedRoles are required", nil)
		return
	}
	c.Set(respond.KeyResumeID, req.ResumeID)

	links, err := h.Svc.GenerateJobLinks(c.Request.Context(), req.ResumeID, req.SelectedRoles)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, JobLinksResponse{JobLinks: links})
}

func (h *Handler) optimizeResume(c *gin.Context) {
	c.Set(respond.KeyStep, StepOptimize)
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "resumeId and jobDescription are required", nil)
		return
	}
	c.Set(respond.KeyResumeID, req.ResumeID)

	opt, err := h.Svc.OptimizeResume(c.Request.Context(), OptimizeInput{
		ResumeID:       req.ResumeID,
		JobDescription: req.JobDescription,
		CompanyName:    req.CompanyName,
		JobTitle:       req.JobTitle,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(respond.KeyOptimizationID, opt.ID)
	respond.OK(c, toOptimizeResponse(opt))
}

func (h *Handler) getOptimization(c *gin.Context) {
	c.Set(respond.KeyStep, StepGetOpt)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	c.Set(respond.KeyOptimizationID, id)

	opt, err := h.Svc.GetOptimization(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, opt)
}

func (h *Handler) createPaymentIntent(c *gin.Context) {
	c.Set(respond.KeyStep, StepCreatePayment)
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, CodeValidation, "optimizationId is required", nil)
		return
	}
	c.Set(respond.KeyOptimizationID, req.OptimizationID)

	result, err := h.Svc.CreatePaymentIntent(c.Request.Context(), req.OptimizationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(respond.KeyPaymentID, result.Payment.ID)
	respond.OK(c, PaymentIntentResponse{
		ClientSecret: result.ClientSecret,
		PaymentID:    result.Payment.ID,
		Amount:       payments.Amount,
		Currency:     result.Payment.Currency,
	})
}

func (h *Handler) paymentStatus(c *gin.Context) {
	c.Set(respond.KeyStep, StepPaymentStatus)
	id, ok := pathID(c, "optimizationId")
	if !ok {
		return
	}
	c.Set(respond.KeyOptimizationID, id)

	result, err := h.Svc.PaymentStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(respond.KeyPaymentID, result.Payment.ID)
	respond.OK(c, PaymentStatusResponse{
		Status:       result.Payment.Status,
		IntentStatus: result.IntentStatus,
		CanDownload:  result.CanDownload,
		UpdatedAt:    result.Payment.UpdatedAt,
	})
}

func (h *Handler) download(c *gin.Context) {
	c.Set(respond.KeyStep, StepDownload)
	id, ok := pathID(c, "optimizationId")
	if !ok {
		return
	}
	c.Set(respond.KeyOptimizationID, id)

	file, err := h.Svc.Download(c.Request.Context(), id, render.Kind(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, file.Name, file.ContentType, file.Data)
}

func (h *Handler) preview(c *gin.Context) {
	c.Set(respond.KeyStep, StepPreview)
	id, ok := pathID(c, "optimizationId")
	if !ok {
		return
	}
	c.Set(respond.KeyOptimizationID, id)

	file, err := h.Svc.Preview(c.Request.Context(), id, render.Kind(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Inline(c, file.Name, file.ContentType, file.Data)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, CodeValidation, name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// writeError maps pipeline errors onto the response envelope. Collaborator
// failures only ever expose SafeRetryMessage.
func writeError(c *gin.Context, err error) {
	c.Set(respond.KeyCause, err.Error())
	switch {
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "File is too large. The limit is 10MB.", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, CodeValidation, validationMessage(err), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, CodeNotFound, notFoundMessage(err), nil)
	case errors.Is(err, ErrPaymentRequired):
		respond.Error(c, http.StatusForbidden, CodePaymentRequired, "Payment required", nil)
	case errors.Is(err, ErrAlreadyPaid):
		respond.Error(c, http.StatusConflict, CodeAlreadyPaid, "This optimization has already been paid for", nil)
	case errors.Is(err, ErrCollaboratorTimeout):
		respond.Error(c, http.StatusGatewayTimeout, CodeTimeout, SafeRetryMessage, nil)
	case errors.Is(err, ErrCollaborator):
		respond.Error(c, http.StatusBadGateway, CodeProcessing, SafeRetryMessage, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	if msg == "" || msg == ErrValidation.Error() {
		return "invalid request"
	}
	return msg
}

func notFoundMessage(err error) string {
	var nf *records.NotFoundError
	if !errors.As(err, &nf) {
		return "not found"
	}
	switch nf.Kind {
	case records.KindResume:
		return "resume not found"
	case records.KindResumeAnalysis:
		return "resume analysis not found"
	case records.KindJobOptimization:
		return "optimization not found"
	case records.KindPayment:
		return "payment not found"
	default:
		return "not found"
	}
}

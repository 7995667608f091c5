package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printgate/printgate/internal/core"
	"github.com/printgate/printgate/internal/payment"
	"github.com/printgate/printgate/internal/pdf"
	"github.com/printgate/printgate/internal/storage"
)

const maxUploadBytes = 32 << 20 // 32 MiB

type CreateOrderRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type ConfirmPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type PrintRequest struct {
	PageFrom   int    `json:"page_from"`
	PageTo     int    `json:"page_to"`
	Copies     int    `json:"copies"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

type PrinterStatusResponse struct {
	Availability string `json:"availability"`
	PrinterName  string `json:"printer_name,omitempty"`
	QueueLength  int    `json:"queue_length"`
	ETASeconds   int    `json:"eta_seconds"`
}

// JobHandler is the end-user surface: document upload, payment flow, print
// requests and status polling.
type JobHandler struct {
	store     *core.Store
	queue     *core.Queue
	liveness  *core.Tracker
	admission *core.Admission
	blobs     core.BlobStore
	slicer    core.DocumentSlicer
	keyID     string
}

func NewJobHandler(store *core.Store, queue *core.Queue, liveness *core.Tracker, admission *core.Admission, blobs core.BlobStore, slicer core.DocumentSlicer, keyID string) *JobHandler {
	return &JobHandler{
		store:     store,
		queue:     queue,
		liveness:  liveness,
		admission: admission,
		blobs:     blobs,
		slicer:    slicer,
		keyID:     keyID,
	}
}

func (h *JobHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	pages, err := h.slicer.PageCount(data)
	if err != nil {
		if errors.Is(err, pdf.ErrCorruptDocument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "document is not a readable PDF"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to inspect document"})
		return
	}

	ref, err := h.blobs.Save(c.Request.Context(), data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	job := h.store.Create(ref, pages)

	c.JSON(http.StatusCreated, gin.H{
		"job_id": job.ID,
		"pages":  pages,
	})
}

func (h *JobHandler) GetPageCount(c *gin.Context) {
	job, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": job.TotalPages})
}

func (h *JobHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID, err := h.admission.CreateOrder(c.Request.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, core.ErrPrinterOffline) {
			c.JSON(http.StatusConflict, gin.H{"error": "printer is offline"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"key_id":   h.keyID,
	})
}

func (h *JobHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.admission.ConfirmPayment(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment signature invalid"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment verification unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *JobHandler) RequestPrint(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PageFrom == 0 {
		req.PageFrom = 1
	}

	job, err := h.admission.RequestPrint(c.Request.Context(), c.Param("id"), req.PageFrom, req.PageTo, req.Copies, req.PaymentRef)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrPrinterOffline):
			c.JSON(http.StatusConflict, gin.H{"error": "printer is offline"})
		case errors.Is(err, core.ErrPaymentNotVerified):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment not verified"})
		case errors.Is(err, core.ErrUnknownJob):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, core.ErrInvalidRange), errors.Is(err, core.ErrInvalidCopies),
			errors.Is(err, core.ErrInvalidTransition), errors.Is(err, pdf.ErrPageOutOfRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusGone, gin.H{"error": "document no longer available"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *JobHandler) GetJobStatus(c *gin.Context) {
	// Unknown ids answer with status "unknown" rather than 404 so polling
	// clients see a stable shape.
	c.JSON(http.StatusOK, gin.H{
		"job_id": c.Param("id"),
		"status": h.store.StatusOf(c.Param("id")),
	})
}

func (h *JobHandler) GetPrinterStatus(c *gin.Context) {
	state := h.liveness.Current()
	queueLen := h.queue.Len()

	c.JSON(http.StatusOK, PrinterStatusResponse{
		Availability: string(state.Availability),
		PrinterName:  state.PrinterName,
		QueueLength:  queueLen,
		ETASeconds:   h.liveness.ETASeconds(queueLen),
	})
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/documents", h.UploadDocument)
	r.GET("/jobs/:id/pages", h.GetPageCount)
	r.POST("/orders", h.CreateOrder)
	r.POST("/payments/verify", h.ConfirmPayment)
	r.POST("/jobs/:id/print", h.RequestPrint)
	r.GET("/jobs/:id", h.GetJobStatus)
	r.GET("/printer", h.GetPrinterStatus)
}

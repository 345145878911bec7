package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"serotonyl.ru/printvend/internal/common"
)

// multipartMemory is how much of the form is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

type processResponse struct {
	Success     bool      `json:"success"`
	QR          string    `json:"qr"`
	OrderID     string    `json:"orderId"`
	TotalAmount float64   `json:"totalAmount"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type Handler struct {
	svc      *Service
	maxBytes int64
	limits   Limits
}

func NewHandler(svc *Service, maxBytes int64, limits Limits) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes, limits: limits}
}

// ProcessPrint serves POST /process-print: multipart "file" plus JSON "meta".
func (h *Handler) ProcessPrint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(w, http.StatusRequestEntityTooLarge, common.ErrFileTooLarge)
			return
		}
		common.Fail(w, common.ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile("file")
	if err != nil {
		common.Fail(w, common.ErrNoFile)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		common.Fail(w, common.ErrNoFile)
		return
	}

	var meta Meta
	if err := json.Unmarshal([]byte(r.FormValue("meta")), &meta); err != nil {
		common.Fail(w, common.ErrInvalidMeta)
		return
	}
	req, err := meta.Normalize(h.limits)
	if err != nil {
		common.Fail(w, err)
		return
	}

	o, err := h.svc.Checkout(r.Context(), req, data)
	if err != nil {
		common.Fail(w, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, processResponse{
		Success:     true,
		QR:          o.QRCode,
		OrderID:     o.OrderID,
		TotalAmount: o.TotalAmount.InexactFloat64(),
		ExpiresAt:   o.ExpiresAt,
	})
}

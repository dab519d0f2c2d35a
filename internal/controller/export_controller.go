package controller

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/nadiyatra/registration/internal/domain/errors"
	"github.com/nadiyatra/registration/internal/domain/registration"
)

// ExportController serves the admin CSV download of registrations.
type ExportController struct {
	registrationRepo registration.Repository
}

// NewExportController creates a new ExportController.
func NewExportController(registrationRepo registration.Repository) *ExportController {
	return &ExportController{registrationRepo: registrationRepo}
}

var exportHeader = []string{
	"ID", "Full Name", "Email", "Mobile Number", "Participation Type",
	"Total Participants", "Adults", "Children", "Infants", "Amount",
	"Payment Status", "Transaction ID", "Created At",
}

// ExportCSV handles GET /api/v1/registrations/export. An optional status
// query parameter narrows the export; no matches is a 404 so the admin sees
// an error instead of an empty spreadsheet.
func (h *ExportController) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter := registration.ListFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := registration.PaymentStatus(strings.ToUpper(s))
		if !status.Valid() {
			writeError(w, domainErrors.NewValidationError("status", "must be one of PENDING, SUCCESS, FAILED, CANCELLED"))
			return
		}
		filter.Status = &status
	}

	regs, err := h.registrationRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(regs) == 0 {
		writeJSON(w, http.StatusNotFound, Envelope{Success: false, Error: "no registrations found", Code: "not_found"})
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return
	}
	for _, reg := range regs {
		txID := ""
		if reg.TransactionID != nil {
			txID = *reg.TransactionID
		}
		record := []string{
			reg.ID.String(),
			reg.FullName,
			reg.Email,
			reg.MobileNumber,
			string(reg.ParticipationType),
			strconv.Itoa(reg.TotalParticipants),
			strconv.Itoa(reg.Adults),
			strconv.Itoa(reg.Children),
			strconv.Itoa(reg.Infants),
			strconv.FormatFloat(poishaToFloat(reg.Amount.ValuePoisha), 'f', 2, 64),
			string(reg.PaymentStatus),
			txID,
			reg.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return
		}
	}
	cw.Flush()
}

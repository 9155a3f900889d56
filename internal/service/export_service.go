package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/export"
)

// Export formats accepted by ExportPaymentHistory.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type paymentHistorySource interface {
	PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportFile is a rendered document ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a student's payment history as a downloadable file.
type ExportService struct {
	history paymentHistorySource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(history paymentHistorySource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportPaymentHistory renders the student's successful payments in format.
func (s *ExportService) ExportPaymentHistory(ctx context.Context, email, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	rows, err := s.history.PaymentHistory(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payment history")
	}
	dataset := paymentDataset(rows)

	stamp := s.now().UTC()
	base := fmt.Sprintf("payment-history-%s", stamp.Format("20060102"))

	var payload []byte
	file := &ExportFile{}
	switch format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Payment history", fmt.Sprintf("%s, generated %s", email, stamp.Format(time.RFC1123)))
		file.Filename = base + ".pdf"
		file.ContentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		file.Filename = base + ".csv"
		file.ContentType = "text/csv"
	}
	if err != nil {
		s.logger.Error("failed to render payment history", zap.String("student_email", email), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render payment history")
	}
	file.Payload = payload
	return file, nil
}

func paymentDataset(rows []models.StudentClassSelection) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Class", "Instructor", "Price", "Paid At", "Transaction"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}

	var total float64
	for _, row := range rows {
		paidAt := ""
		if row.PaymentDate != nil {
			paidAt = row.PaymentDate.UTC().Format(time.RFC3339)
		}
		instructor := row.InstructorName
		if instructor == "" {
			instructor = row.InstructorEmail
		}
		data.Rows = append(data.Rows, map[string]string{
			"Class":       row.ClassName,
			"Instructor":  instructor,
			"Price":       fmt.Sprintf("%.2f", row.Price),
			"Paid At":     paidAt,
			"Transaction": row.TransactionID,
		})
		total += row.Price
	}

	data.Footer = map[string]string{
		"Class": fmt.Sprintf("%d payments", len(rows)),
		"Price": fmt.Sprintf("%.2f", total),
	}
	return data
}

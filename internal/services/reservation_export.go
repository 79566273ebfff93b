package services

import (
	"context"
	"fmt"
	"io"

	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Reservations"

var exportHeader = []interface{}{
	"ID", "Status", "Reader", "Reader email", "Book", "ISBN", "Reserved at", "Due date", "Handled by",
}

// Export writes every reservation matching filters as an xlsx workbook.
// Pagination in filters is ignored.
func (s *reservationService) Export(ctx context.Context, filters repositories.ReservationFilters, w io.Writer) error {
	s.logger.Info("Exporting reservations")

	filters.Limit, filters.Offset = 0, 0
	details, _, err := s.repo.Reservation().List(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to prepare sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, d := range details {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(d)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "I", 20); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Reservations exported", "rows", len(details))
	return nil
}

func exportRow(d *repositories.ReservationDetail) []interface{} {
	var reader, email, title, isbn, dueDate, handler string
	if d.User != nil {
		reader, email = d.User.Name, d.User.Email
	}
	if d.Book != nil {
		title = d.Book.Title
		if d.Book.ISBN != nil {
			isbn = *d.Book.ISBN
		}
	}
	if d.DueDate != nil {
		dueDate = d.DueDate.Format(validator.DateLayout)
	}
	if d.Handler != nil {
		handler = d.Handler.Name
	}

	return []interface{}{
		d.ID,
		string(d.Status),
		reader,
		email,
		title,
		isbn,
		d.ReservedAt.UTC().Format("2006-01-02 15:04"),
		dueDate,
		handler,
	}
}

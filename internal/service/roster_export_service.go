package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/thryve/studio-scheduler-api/internal/models"
	appErrors "github.com/thryve/studio-scheduler-api/pkg/errors"
	"github.com/thryve/studio-scheduler-api/pkg/export"
)

type rosterBookingReader interface {
	ListByClassAndStatus(ctx context.Context, classID string, status models.BookingStatus) ([]models.Booking, error)
}

type rosterWaitlistReader interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.WaitlistEntry, error)
}

// ExportFormat selects the roster output encoding.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered roster bytes with serving metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RosterExportService renders a class roster, confirmed seats followed by
// the waitlist in position order, as CSV or PDF.
type RosterExportService struct {
	sessions classSessionReader
	bookings rosterBookingReader
	waitlist rosterWaitlistReader
	studios  studioDirectory
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewRosterExportService creates the service.
func NewRosterExportService(sessions classSessionReader, bookings rosterBookingReader, waitlist rosterWaitlistReader, studios studioDirectory, logger *zap.Logger) *RosterExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterExportService{
		sessions: sessions,
		bookings: bookings,
		waitlist: waitlist,
		studios:  studios,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Export renders the class roster in the requested format. Only studio
// owners and staff may export rosters.
func (s *RosterExportService) Export(ctx context.Context, classID, requesterID string, format ExportFormat) (*ExportResult, error) {
	session, err := s.sessions.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.ensureStudioStaff(ctx, session.StudioID, requesterID); err != nil {
		return nil, err
	}

	table, err := s.buildRoster(ctx, session)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(*table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &ExportResult{
			FileName:    rosterFileName(session, "csv"),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("%s roster, %s", session.Name, session.StartTime.UTC().Format("2006-01-02 15:04"))
		data, err := s.pdf.Render(*table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &ExportResult{
			FileName:    rosterFileName(session, "pdf"),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *RosterExportService) buildRoster(ctx context.Context, session *models.ClassSession) (*export.Table, error) {
	confirmed, err := s.bookings.ListByClassAndStatus(ctx, session.ID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list confirmed bookings")
	}
	waiting, err := s.waitlist.ListActiveByClass(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}

	table := &export.Table{
		Columns: []string{"User ID", "Standing", "Payment Method", "Since"},
		Rows:    make([][]string, 0, len(confirmed)+len(waiting)),
	}
	for _, booking := range confirmed {
		table.Rows = append(table.Rows, []string{
			booking.UserID,
			"Confirmed",
			booking.PaymentMethod,
			booking.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for i, entry := range waiting {
		table.Rows = append(table.Rows, []string{
			entry.UserID,
			"Waitlist #" + strconv.Itoa(i+1),
			"",
			entry.JoinedAt.UTC().Format(time.RFC3339),
		})
	}
	return table, nil
}

func (s *RosterExportService) ensureStudioStaff(ctx context.Context, studioID, actorID string) error {
	membership, err := s.studios.FindMembership(ctx, studioID, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrForbidden, "not a member of this studio")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if membership.Role != models.MembershipRoleOwner && membership.Role != models.MembershipRoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "studio staff privileges required")
	}
	return nil
}

func rosterFileName(session *models.ClassSession, ext string) string {
	return fmt.Sprintf("roster-%s-%s.%s", session.ID, session.StartTime.UTC().Format("20060102"), ext)
}

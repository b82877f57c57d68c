package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/repository"

	"go.uber.org/zap"
)

// Propose resolves a scanned helmet QR code into the transition a
// supervisor would be committing to. Nothing is persisted here; the
// worker's state only changes when the proposal is approved.
func (s *Service) Propose(ctx context.Context, qr models.QRPayload) (*models.ScanProposal, error) {
	if !strings.EqualFold(qr.Type, "HELMET") || qr.ID == "" {
		return nil, ErrInvalidQR
	}

	user, err := s.users.GetByDevice(ctx, qr.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDeviceUnassigned
		}
		return nil, fmt.Errorf("resolve helmet %s: %w", qr.ID, err)
	}

	workDate := s.now().Format(workDateLayout)
	existing, err := s.store.FindByUserAndDate(ctx, user.ID, workDate)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up attendance: %w", err)
	}

	proposal := &models.ScanProposal{User: *user}
	switch {
	case existing == nil:
		proposal.Action = models.ActionCheckIn
	case existing.CheckedOut():
		return nil, ErrAlreadyCheckedOut
	default:
		proposal.Action = models.ActionCheckOut
		proposal.AttendanceID = &existing.ID
	}

	var site *models.Site
	if user.SiteID != nil {
		if loaded, siteErr := s.sites.GetSite(ctx, *user.SiteID); siteErr == nil {
			site = loaded
		}
	}
	proposal.Shift = s.resolveShift(ctx, user, site)
	return proposal, nil
}

// ApproveRequest a supervisor's confirmation of a proposed scan.
type ApproveRequest struct {
	ActorID      string
	WorkerID     string
	DeviceID     string
	Action       string  // CHECK_IN / CHECK_OUT
	AttendanceID *string // from the proposal, for CHECK_OUT
	JobRole      *string
}

// Approve commits a proposed scan on the worker's behalf. The resulting
// record is marked verified and the worker is told what happened.
func (s *Service) Approve(ctx context.Context, req ApproveRequest) (*models.Attendance, error) {
	actor, err := s.users.GetUser(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if actor.Role != models.RoleSupervisor && actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	worker, err := s.users.GetUser(ctx, req.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}

	scan := ScanRequest{UserID: worker.ID, DeviceID: req.DeviceID, JobRole: req.JobRole}

	var att *models.Attendance
	switch req.Action {
	case models.ActionCheckIn:
		att, err = s.checkIn(ctx, worker, scan, true)
	case models.ActionCheckOut:
		att, err = s.checkOut(ctx, worker, scan, true)
	default:
		return nil, ErrUnknownAction
	}
	if err != nil {
		return nil, err
	}

	if req.AttendanceID != nil && *req.AttendanceID != att.ID {
		// The slot the supervisor saw was replaced between propose and
		// approve; the committed transition is still the right one.
		s.logger.Warn("Approved scan landed on a different attendance record",
			zap.String("proposed", *req.AttendanceID),
			zap.String("committed", att.ID))
	}

	verb := "checked in"
	if req.Action == models.ActionCheckOut {
		verb = "checked out"
	}
	s.emitter.Emit(ctx, models.EventAttendanceNotified, map[string]interface{}{
		"user_id":    worker.ID,
		"action":     req.Action,
		"attendance": att,
		"actor":      actor.ID,
	})
	s.notifier.NotifyUser(ctx, *worker,
		"Attendance recorded",
		fmt.Sprintf("You were %s by %s.", verb, actor.Name))
	return att, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

const invitationSelect = `SELECT i.id, i.group_id, COALESCE(g.name, ''), i.inviter_id, COALESCE(p.display_name, ''),
	i.invitee_id, i.status, i.created_at, COALESCE(i.responded_at, 0)
	FROM invitations i
	LEFT JOIN groups g ON g.id = i.group_id
	LEFT JOIN profiles p ON p.user_id = i.inviter_id`

func scanInvitation(scanner interface{ Scan(...any) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := scanner.Scan(&inv.ID, &inv.GroupID, &inv.GroupName, &inv.InviterID, &inv.InviterName,
		&inv.InviteeID, &inv.Status, &inv.CreatedAt, &inv.RespondedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvitation persists a pending invitation.
func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt == 0 {
		inv.CreatedAt = time.Now().Unix()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, group_id, inviter_id, invitee_id, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.GroupID, inv.InviterID, inv.InviteeID, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// GetInvitation retrieves an invitation by ID.
func (s *SQLiteStore) GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	row := s.db.QueryRowContext(ctx, invitationSelect+` WHERE i.id = ?`, invitationID)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invitation %s: %w", invitationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// FindPendingInvitation returns the pending invitation of inviteeID to groupID.
func (s *SQLiteStore) FindPendingInvitation(ctx context.Context, groupID, inviteeID string) (*models.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		invitationSelect+` WHERE i.group_id = ? AND i.invitee_id = ? AND i.status = 'pending' ORDER BY i.created_at DESC LIMIT 1`,
		groupID, inviteeID,
	)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending invitation for %s: %w", inviteeID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return inv, nil
}

// ListPendingInvitations returns invitations still waiting for inviteeID.
func (s *SQLiteStore) ListPendingInvitations(ctx context.Context, inviteeID string) ([]*models.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		invitationSelect+` WHERE i.invitee_id = ? AND i.status = 'pending' ORDER BY i.created_at DESC, i.id`,
		inviteeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []*models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

// RespondToInvitation answers a pending invitation and, on accept, adds the
// invitee to the group in the same transaction.
func (s *SQLiteStore) RespondToInvitation(ctx context.Context, inv *models.Invitation, accept bool, at int64) error {
	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE invitations SET status = ?, responded_at = ? WHERE id = ? AND status = 'pending'`,
		status, at, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invitation %s is not pending: %w", inv.ID, storage.ErrConflict)
	}

	if accept {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(group_id, user_id) DO NOTHING`,
			inv.GroupID, inv.InviteeID, models.RoleMember, at,
		)
		if err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	inv.Status = status
	inv.RespondedAt = at
	return nil
}

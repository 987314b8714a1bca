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

// CreateGroup persists a new group and makes its creator the owner.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		group.ID, group.CreatedBy, models.RoleOwner, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// DeleteGroup removes a group. Members, expenses, splits, settlements and
// invitations go with it through foreign key cascades.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return rowsAffected(res, "group", groupID)
}

// ListGroupsForUser returns the groups userID belongs to, newest first.
// NetBalance is left zero; it is computed from expenses by the caller.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.created_by, g.created_at, gm.role,
		        (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id)
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY g.created_at DESC, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.GroupSummary{}
	for rows.Next() {
		g := &models.GroupSummary{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.Role, &g.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

const memberSelect = `SELECT gm.group_id, gm.user_id, gm.role, COALESCE(p.display_name, ''), u.email, gm.joined_at
	FROM group_members gm
	JOIN users u ON u.id = gm.user_id
	LEFT JOIN profiles p ON p.user_id = gm.user_id`

func scanMember(scanner interface{ Scan(...any) error }) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	if err := scanner.Scan(&m.GroupID, &m.UserID, &m.Role, &m.DisplayName, &m.Email, &m.JoinedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// ListGroupMembers returns members in the order they joined.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		memberSelect+` WHERE gm.group_id = ? ORDER BY gm.joined_at, gm.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*models.GroupMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// GetGroupMember returns one membership, or ErrNotFound.
func (s *SQLiteStore) GetGroupMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	row := s.db.QueryRowContext(ctx, memberSelect+` WHERE gm.group_id = ? AND gm.user_id = ?`, groupID, userID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// AddGroupMember inserts a membership. ErrConflict if it already exists.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, member *models.GroupMember) error {
	if member.Role == "" {
		member.Role = models.RoleMember
	}
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		member.GroupID, member.UserID, member.Role, member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s of group %s: %w", member.UserID, member.GroupID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveGroupMember deletes a membership.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return rowsAffected(res, "member", userID)
}

// SetGroupMemberRole changes a member's role.
func (s *SQLiteStore) SetGroupMemberRole(ctx context.Context, groupID, userID, role string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE group_members SET role = ? WHERE group_id = ? AND user_id = ?`,
		role, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set member role: %w", err)
	}
	return rowsAffected(res, "member", userID)
}

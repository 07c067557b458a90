package database

import (
	"context"

	"github.com/condoflow/condoflow/internal/common/errorx"
)

// CreateInvite creates a new invite
func (s *Store) CreateInvite(ctx context.Context, invite *Invite) error {
	return translate(s.conn(ctx).Create(invite).Error)
}

// GetInvite retrieves an invite by ID
func (s *Store) GetInvite(ctx context.Context, id string) (*Invite, error) {
	var invite Invite
	if err := s.conn(ctx).First(&invite, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

// GetInviteByToken retrieves an invite by its opaque token
func (s *Store) GetInviteByToken(ctx context.Context, token string) (*Invite, error) {
	var invite Invite
	if err := s.conn(ctx).First(&invite, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

// GetInviteByTokenForUpdate locks the invite row so concurrent redemptions
// of the same token serialize. Call inside a Transaction.
func (s *Store) GetInviteByTokenForUpdate(ctx context.Context, token string) (*Invite, error) {
	var invite Invite
	err := forUpdate(s.conn(ctx)).
		First(&invite, "token = ?", token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

// UpdateInvite updates an existing invite
func (s *Store) UpdateInvite(ctx context.Context, invite *Invite) error {
	return translate(s.conn(ctx).Save(invite).Error)
}

// ListInvitesByUnit retrieves all invites targeting a unit, newest first
func (s *Store) ListInvitesByUnit(ctx context.Context, unitID uint) ([]*Invite, error) {
	var invites []*Invite
	err := s.conn(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at desc").
		Find(&invites).Error
	return invites, translate(err)
}

// DeleteInvite soft-deletes an invite
func (s *Store) DeleteInvite(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&Invite{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errorx.ErrNotFound
	}
	return nil
}

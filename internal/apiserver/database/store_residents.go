package database

import (
	"context"

	"github.com/condoflow/condoflow/internal/common/errorx"
)

// CreateResident creates a new resident row
func (s *Store) CreateResident(ctx context.Context, resident *Resident) error {
	return translate(s.conn(ctx).Create(resident).Error)
}

// GetResident retrieves a resident by ID
func (s *Store) GetResident(ctx context.Context, id uint) (*Resident, error) {
	var resident Resident
	if err := s.conn(ctx).First(&resident, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &resident, nil
}

// GetActiveResident returns the active residency for (user, unit).
func (s *Store) GetActiveResident(ctx context.Context, userID, unitID uint) (*Resident, error) {
	var resident Resident
	err := s.conn(ctx).
		Where("user_id = ? AND unit_id = ? AND is_active = ?", userID, unitID, true).
		First(&resident).Error
	if err != nil {
		return nil, translate(err)
	}
	return &resident, nil
}

// GetActiveResidentForUpdate locks the active residency row for (user, unit)
// to close the create-create race. Call inside a Transaction.
func (s *Store) GetActiveResidentForUpdate(ctx context.Context, userID, unitID uint) (*Resident, error) {
	var resident Resident
	err := forUpdate(s.conn(ctx)).
		Where("user_id = ? AND unit_id = ? AND is_active = ?", userID, unitID, true).
		First(&resident).Error
	if err != nil {
		return nil, translate(err)
	}
	return &resident, nil
}

// GetActiveOwnerForUpdate locks and returns the unit's active owner row.
// Call inside a Transaction.
func (s *Store) GetActiveOwnerForUpdate(ctx context.Context, unitID uint) (*Resident, error) {
	var resident Resident
	err := forUpdate(s.conn(ctx)).
		Where("unit_id = ? AND is_owner = ? AND is_active = ?", unitID, true, true).
		First(&resident).Error
	if err != nil {
		return nil, translate(err)
	}
	return &resident, nil
}

// ListResidentsByUnit retrieves all resident rows for a unit, newest first
func (s *Store) ListResidentsByUnit(ctx context.Context, unitID uint) ([]*Resident, error) {
	var residents []*Resident
	err := s.conn(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at desc").
		Find(&residents).Error
	return residents, translate(err)
}

// ListActiveResidentsByUser retrieves the user's active residencies
func (s *Store) ListActiveResidentsByUser(ctx context.Context, userID uint) ([]*Resident, error) {
	var residents []*Resident
	err := s.conn(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&residents).Error
	return residents, translate(err)
}

// CountOtherActiveResidencies counts the user's active residencies in units
// of the given condo, excluding one resident row. Used on move-out to decide
// whether the condo-scoped resident role grant may be deactivated.
func (s *Store) CountOtherActiveResidencies(ctx context.Context, userID, condoID, excludeResidentID uint) (int64, error) {
	var count int64
	err := s.conn(ctx).
		Model(&Resident{}).
		Where("user_id = ? AND is_active = ? AND id <> ?", userID, true, excludeResidentID).
		Where("unit_id IN (?)",
			s.conn(ctx).Model(&Unit{}).Select("id").Where("condo_id = ?", condoID)).
		Count(&count).Error
	return count, translate(err)
}

// UpdateResident updates an existing resident row
func (s *Store) UpdateResident(ctx context.Context, resident *Resident) error {
	return translate(s.conn(ctx).Save(resident).Error)
}

// DeleteResident soft-deletes a resident row
func (s *Store) DeleteResident(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&Resident{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errorx.ErrNotFound
	}
	return nil
}

// ListUnitsByUser returns the units the user actively occupies
func (s *Store) ListUnitsByUser(ctx context.Context, userID uint) ([]*Unit, error) {
	var units []*Unit
	err := s.conn(ctx).
		Where("id IN (?)",
			s.conn(ctx).Model(&Resident{}).Select("unit_id").
				Where("user_id = ? AND is_active = ?", userID, true)).
		Find(&units).Error
	return units, translate(err)
}

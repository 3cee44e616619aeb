// Package employee manages the staff accounts that redeem gift cards in person.
package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tablehouse/eventdesk/internal/apperr"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/security"
	"gorm.io/gorm"
)

// maxPasscodeAttempts bounds random passcode generation; the space holds 10,000 codes.
const maxPasscodeAttempts = 50

// Service manages employees.
type Service struct {
	db *gorm.DB
}

// NewService builds an employee service over db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest describes a new employee.
type CreateRequest struct {
	Name     string `json:"name"`
	Passcode string `json:"passcode"` // Generated when empty.
	Notes    string `json:"notes"`
}

// UpdateRequest changes mutable employee fields; nil fields are left alone.
type UpdateRequest struct {
	Name     *string `json:"name"`
	Passcode *string `json:"passcode"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"`
}

// Create inserts an active employee.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Employee, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Employee name is required")
	}
	passcode := strings.TrimSpace(req.Passcode)
	if passcode != "" && !security.IsPasscode(passcode) {
		return nil, apperr.Validation("Passcode must be 4 digits")
	}

	row := models.Employee{
		Name:   name,
		Status: models.EmployeeStatusActive,
		Notes:  strings.TrimSpace(req.Notes),
	}
	if passcode != "" {
		row.Passcode = passcode
		if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			if dbutil.IsUniqueViolation(errCreate) {
				return nil, apperr.Validation("Passcode already in use")
			}
			return nil, fmt.Errorf("employee: create: %w", errCreate)
		}
		return &row, nil
	}

	for attempt := 0; attempt < maxPasscodeAttempts; attempt++ {
		generated, errGen := security.GeneratePasscode()
		if errGen != nil {
			return nil, errGen
		}
		row.ID = 0
		row.Passcode = generated
		errCreate := s.db.WithContext(ctx).Create(&row).Error
		if errCreate == nil {
			return &row, nil
		}
		if !dbutil.IsUniqueViolation(errCreate) {
			return nil, fmt.Errorf("employee: create: %w", errCreate)
		}
	}
	return nil, apperr.New(apperr.KindCodeSpaceExhausted, "No free passcode available")
}

// Get returns one employee.
func (s *Service) Get(ctx context.Context, id uint64) (*models.Employee, error) {
	var row models.Employee
	if errFind := s.db.WithContext(ctx).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Employee not found")
		}
		return nil, fmt.Errorf("employee: get: %w", errFind)
	}
	return &row, nil
}

// List returns employees, optionally restricted to one status.
func (s *Service) List(ctx context.Context, status string) ([]models.Employee, error) {
	q := s.db.WithContext(ctx).Model(&models.Employee{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Employee
	if errFind := q.Order("name ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("employee: list: %w", errFind)
	}
	return rows, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id uint64, req UpdateRequest) (*models.Employee, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("Employee name is required")
		}
		updates["name"] = name
	}
	if req.Passcode != nil {
		passcode := strings.TrimSpace(*req.Passcode)
		if !security.IsPasscode(passcode) {
			return nil, apperr.Validation("Passcode must be 4 digits")
		}
		updates["passcode"] = passcode
	}
	if req.Notes != nil {
		updates["notes"] = strings.TrimSpace(*req.Notes)
	}
	if req.Status != nil {
		switch *req.Status {
		case models.EmployeeStatusActive, models.EmployeeStatusArchived:
			updates["status"] = *req.Status
		default:
			return nil, apperr.Validation("Status must be active or archived")
		}
	}
	if _, errGet := s.Get(ctx, id); errGet != nil {
		return nil, errGet
	}
	if len(updates) > 0 {
		errUpdate := s.db.WithContext(ctx).Model(&models.Employee{}).Where("id = ?", id).Updates(updates).Error
		if errUpdate != nil {
			if dbutil.IsUniqueViolation(errUpdate) {
				return nil, apperr.Validation("Passcode already in use")
			}
			return nil, fmt.Errorf("employee: update: %w", errUpdate)
		}
	}
	return s.Get(ctx, id)
}

// Archive hides an employee from sign-in while keeping their audit history.
func (s *Service) Archive(ctx context.Context, id uint64) (*models.Employee, error) {
	status := models.EmployeeStatusArchived
	return s.Update(ctx, id, UpdateRequest{Status: &status})
}

// Delete removes an employee that never recorded a transaction.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if errCount := tx.Model(&models.GiftCardTransaction{}).Where("employee_id = ?", id).Count(&used).Error; errCount != nil {
			return fmt.Errorf("employee: count transactions: %w", errCount)
		}
		if used > 0 {
			return apperr.InvalidState("Employee has transactions; archive instead")
		}
		res := tx.Delete(&models.Employee{}, id)
		if res.Error != nil {
			return fmt.Errorf("employee: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Employee not found")
		}
		return nil
	})
}

// Authenticate resolves an active employee by passcode.
func (s *Service) Authenticate(ctx context.Context, passcode string) (*models.Employee, error) {
	passcode = strings.TrimSpace(passcode)
	if !security.IsPasscode(passcode) {
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid passcode")
	}
	var row models.Employee
	errFind := s.db.WithContext(ctx).
		Where("passcode = ? AND status = ?", passcode, models.EmployeeStatusActive).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindUnauthorized, "Invalid passcode")
		}
		return nil, fmt.Errorf("employee: authenticate: %w", errFind)
	}
	return &row, nil
}

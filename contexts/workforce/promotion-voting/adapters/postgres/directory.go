package postgresadapter

import (
	"context"
	"errors"
	"strings"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetEmployee reads the local roster projection kept in sync with the
// directory service.
func (r *Repository) GetEmployee(ctx context.Context, employeeID string) (entities.Employee, error) {
	var row employeeModel
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", strings.TrimSpace(employeeID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Employee{}, domainerrors.ErrEmployeeNotFound
		}
		return entities.Employee{}, r.logError("promotion_repo_get_employee_failed", err,
			"employee_id", strings.TrimSpace(employeeID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListStoreEmployees(ctx context.Context, storeName string) ([]entities.Employee, error) {
	var rows []employeeModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(store_name) = LOWER(?)", strings.TrimSpace(storeName)).
		Order("employee_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("promotion_repo_list_store_employees_failed", err,
			"store_name", strings.TrimSpace(storeName),
		)
	}
	items := make([]entities.Employee, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// UpsertEmployees refreshes the roster projection.
func (r *Repository) UpsertEmployees(ctx context.Context, employees []entities.Employee) error {
	if len(employees) == 0 {
		return nil
	}
	rows := make([]employeeModel, 0, len(employees))
	for _, employee := range employees {
		rows = append(rows, employeeModel{
			EmployeeID: strings.TrimSpace(employee.EmployeeID),
			Name:       strings.TrimSpace(employee.Name),
			StoreName:  strings.TrimSpace(employee.StoreName),
			Position:   strings.TrimSpace(employee.Position),
			Active:     employee.Active,
		})
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "store_name", "position", "active"}),
	}).Create(&rows).Error; err != nil {
		return r.logError("promotion_repo_upsert_employees_failed", err, "employee_count", len(rows))
	}
	return nil
}

package directory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"

	"gopkg.in/yaml.v3"
)

// Roster is an in-process directory backed by a static employee list.
type Roster struct {
	mu        sync.RWMutex
	employees map[string]entities.Employee
}

func NewRoster(employees []entities.Employee) *Roster {
	roster := &Roster{employees: make(map[string]entities.Employee, len(employees))}
	for _, employee := range employees {
		roster.Upsert(employee)
	}
	return roster
}

// Upsert adds or replaces one employee.
func (r *Roster) Upsert(employee entities.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	employee.EmployeeID = strings.TrimSpace(employee.EmployeeID)
	employee.Name = strings.TrimSpace(employee.Name)
	employee.StoreName = strings.TrimSpace(employee.StoreName)
	employee.Position = strings.TrimSpace(employee.Position)
	r.employees[employee.EmployeeID] = employee
}

func (r *Roster) Remove(employeeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.employees, strings.TrimSpace(employeeID))
}

func (r *Roster) GetEmployee(_ context.Context, employeeID string) (entities.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	employee, ok := r.employees[strings.TrimSpace(employeeID)]
	if !ok {
		return entities.Employee{}, domainerrors.ErrEmployeeNotFound
	}
	return employee, nil
}

func (r *Roster) ListStoreEmployees(_ context.Context, storeName string) ([]entities.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	storeName = strings.TrimSpace(storeName)
	items := make([]entities.Employee, 0)
	for _, employee := range r.employees {
		if strings.EqualFold(employee.StoreName, storeName) {
			items = append(items, employee)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].EmployeeID < items[j].EmployeeID
	})
	return items, nil
}

func (r *Roster) Employees() []entities.Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]entities.Employee, 0, len(r.employees))
	for _, employee := range r.employees {
		items = append(items, employee)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].EmployeeID < items[j].EmployeeID
	})
	return items
}

type rosterFile struct {
	Employees []rosterEntry `yaml:"employees"`
}

type rosterEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Store    string `yaml:"store"`
	Position string `yaml:"position"`
	Active   *bool  `yaml:"active"`
}

// LoadRosterFile reads a YAML roster export. Entries default to active.
func LoadRosterFile(path string) ([]entities.Employee, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	return ParseRoster(raw)
}

func ParseRoster(raw []byte) ([]entities.Employee, error) {
	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Employees))
	items := make([]entities.Employee, 0, len(file.Employees))
	for idx, entry := range file.Employees {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("roster entry %d has no id", idx)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("roster entry %q is listed more than once", id)
		}
		seen[id] = struct{}{}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		items = append(items, entities.Employee{
			EmployeeID: id,
			Name:       strings.TrimSpace(entry.Name),
			StoreName:  strings.TrimSpace(entry.Store),
			Position:   strings.TrimSpace(entry.Position),
			Active:     active,
		})
	}
	return items, nil
}

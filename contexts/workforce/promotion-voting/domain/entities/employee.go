package entities

// Employee is the directory's view of a staff member.
type Employee struct {
	EmployeeID string
	Name       string
	StoreName  string
	Position   string
	Active     bool
}

package postgres

import "github.com/emiliopalmerini/splitr/internal/ports"

// Repositories holds the postgres repository implementations as port interfaces.
type Repositories struct {
	Experiments ports.ExperimentRepository
	Assignments ports.AssignmentRepository
}

func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Experiments: NewExperimentRepository(db),
		Assignments: NewAssignmentRepository(db),
	}
}

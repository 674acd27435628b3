package domain

import "time"

type SubjectKind string

const (
	SubjectUser    SubjectKind = "user"
	SubjectSession SubjectKind = "session"
)

// Subject is the unit of assignment: an authenticated user or an anonymous
// browser session. Kind is part of the identity, so a user id and a session
// id with the same text never collide.
type Subject struct {
	Kind SubjectKind
	Key  string

	// Persisted is false when the anonymous id could not be stored for the
	// session. Such subjects are never enrolled.
	Persisted bool
}

func UserSubject(userID string) Subject {
	return Subject{Kind: SubjectUser, Key: userID, Persisted: true}
}

func SessionSubject(anonID string) Subject {
	return Subject{Kind: SubjectSession, Key: anonID, Persisted: true}
}

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.Key
}

// Assignment records which variant a subject saw and whether it converted.
// There is at most one per (ExperimentID, Subject).
type Assignment struct {
	ExperimentID    string
	Subject         Subject
	VariantID       string
	AssignedAt      time.Time
	Converted       bool
	ConvertedAt     *time.Time
	ConversionValue *float64
}

// Conversion carries the fields written when a subject converts.
type Conversion struct {
	ConvertedAt time.Time
	Value       *float64
}

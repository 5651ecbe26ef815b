package domain

// Stage values mirror the current_stage column in PostgreSQL.
// Canonical form is lowercase; legacy capitalized values are a data-migration
// concern, not something this service accepts at runtime.
type Stage string

const (
	StageApplied   Stage = "applied"
	StageScreening Stage = "screening"
	StageInterview Stage = "interview"
	StageOffer     Stage = "offer"
	StageHired     Stage = "hired"
	StageRejected  Stage = "rejected"
)

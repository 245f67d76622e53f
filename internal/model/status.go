package model

// ValidationStatus — итоговый статус клуба или мероприятия.
// NULL в старых строках трактуется как pending (0).
type ValidationStatus int

const (
	StatusRejected  ValidationStatus = -1
	StatusPending   ValidationStatus = 0
	StatusValidated ValidationStatus = 1
)

func (s ValidationStatus) String() string {
	switch s {
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	case StatusValidated:
		return "validated"
	default:
		return "unknown"
	}
}

// Approval — отметка одного согласующего (sub-flag).
type Approval int

const (
	ApprovalRefused  Approval = -1
	ApprovalUnset    Approval = 0
	ApprovalApproved Approval = 1
)

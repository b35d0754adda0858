package workflow

// Role is the actor role supplied by the identity layer.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAuthor     Role = "author"
	RoleTypesetter Role = "typesetter"
	RoleReviewer   Role = "reviewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleTypesetter, RoleReviewer:
		return true
	}
	return false
}

// Effect is the approval side effect applied together with a status write.
type Effect int

const (
	EffectNone Effect = iota
	EffectRecordFieldApproval
	EffectRecordLanguageApproval
	EffectResetApprovals
)

// Reason explains a denied transition.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonForbidden     Reason = "forbidden"
	ReasonInvalidTarget Reason = "invalid_target"
)

// Input is everything the authorizer looks at. It never touches storage.
type Input struct {
	Role                  Role
	FieldReviewer         bool
	LanguageReviewer      bool
	IsOwner               bool
	IsAssignedTypesetter  bool
	HasAssignedTypesetter bool
	Current               Status
	Requested             Status
}

// Decision is the authorizer result. Effect is only meaningful when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
	Effect  Effect
}

func allow(to Status) Decision {
	return Decision{Allowed: true, Effect: EffectFor(to)}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// EffectFor returns the approval side effect tied to entering status to.
func EffectFor(to Status) Effect {
	switch {
	case to == StatusFieldApproved:
		return EffectRecordFieldApproval
	case to == StatusLanguageApproved:
		return EffectRecordLanguageApproval
	case IsRevisionRequested(to):
		return EffectResetApprovals
	}
	return EffectNone
}

func (in Input) reviewer() bool {
	return in.Role == RoleReviewer || in.FieldReviewer || in.LanguageReviewer
}

func (in Input) typesetter() bool {
	return in.Role == RoleTypesetter
}

// Authorize decides whether the actor described by in may move a question to in.Requested.
func Authorize(in Input) Decision {
	if !IsValid(in.Requested) {
		return deny(ReasonInvalidTarget)
	}
	if in.Role == RoleAdmin {
		return allow(in.Requested)
	}
	if IsTerminal(in.Current) && in.Current != in.Requested {
		return deny(ReasonForbidden)
	}

	var ok bool
	switch to := in.Requested; {
	case to == StatusTypesettingQueued,
		to == StatusFieldReview,
		to == StatusLanguageReview,
		to == StatusCompleted:
		ok = in.IsOwner
	case to == StatusTypesettingInProgress:
		ok = in.typesetter() && (!in.HasAssignedTypesetter || in.IsAssignedTypesetter)
	case to == StatusTypesettingDone:
		ok = in.typesetter() && (!in.HasAssignedTypesetter || in.IsAssignedTypesetter)
	case to == StatusFieldApproved:
		ok = in.FieldReviewer
	case to == StatusLanguageApproved:
		ok = in.LanguageReviewer
	case IsRevisionRequested(to):
		ok = in.reviewer() || in.typesetter()
	}
	if !ok {
		return deny(ReasonForbidden)
	}
	return allow(in.Requested)
}

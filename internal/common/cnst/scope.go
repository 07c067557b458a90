package cnst

// ScopeKind identifies the level in the company > condo > unit hierarchy a
// check or a role grant targets.
type ScopeKind string

const (
	ScopeCompany ScopeKind = "company"
	ScopeCondo   ScopeKind = "condo"
	ScopeUnit    ScopeKind = "unit"
)

// Context keys used by the gin middleware chain.
const (
	// CtxClaims holds the verified JWT claims for the request.
	CtxClaims = "claims"
	// CtxUserID holds the authenticated user id.
	CtxUserID = "userID"
)

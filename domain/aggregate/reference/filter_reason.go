package reference

// FilterReason tags why an active leg did not appear in ReferenceState.references.
type FilterReason string

const (
	ReasonNotFormed      FilterReason = "NOT_FORMED"
	ReasonPivotBreached  FilterReason = "PIVOT_BREACHED"
	ReasonCompleted      FilterReason = "COMPLETED"
	ReasonOriginBreached FilterReason = "ORIGIN_BREACHED"
	ReasonNotTopN        FilterReason = "NOT_TOP_N"
)

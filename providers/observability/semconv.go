package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- Phase Attributes ---

const (
	// AttrPhaseIndex is the zero-based index of the phase within a run.
	AttrPhaseIndex = "pipeline.phase.index"

	// AttrPhaseNodeCount is the number of nodes assigned to a phase.
	AttrPhaseNodeCount = "pipeline.phase.node_count"

	// AttrPhaseDuration is the wall-clock duration of a phase.
	AttrPhaseDuration = "pipeline.phase.duration"
)

// --- Node Attributes ---

const (
	// AttrNodeName is the declared name of a node.
	AttrNodeName = "pipeline.node.name"

	// AttrNodeState is a node's lifecycle state at the time of the event.
	AttrNodeState = "pipeline.node.state"
)

// --- Memory Attributes ---

const (
	// AttrMemoryBudget is the total byte budget allocated for a phase.
	AttrMemoryBudget = "pipeline.memory.budget"

	// AttrMemoryConsumer is the name of a memory budget consumer (a node
	// or a named datastructure).
	AttrMemoryConsumer = "pipeline.memory.consumer"

	// AttrMemoryAllocated is the number of bytes allocated to a consumer.
	AttrMemoryAllocated = "pipeline.memory.allocated"
)

// --- Progress Attributes ---

const (
	// AttrProgressStepsRequested is the number of steps a node requested
	// to advance by.
	AttrProgressStepsRequested = "pipeline.progress.steps_requested"

	// AttrProgressStepsRemaining is the number of steps remaining in a
	// node's budget before the request.
	AttrProgressStepsRemaining = "pipeline.progress.steps_remaining"
)

// --- General Attributes ---

const (
	// AttrError is the error message.
	AttrError = "error"

	// AttrErrorType is the error type/class.
	AttrErrorType = "error.type"

	// AttrDuration is the operation duration.
	AttrDuration = "duration"

	// AttrStatus is the operation status.
	AttrStatus = "status"
	// AttrStatusDescription is the human-readable status description.
	AttrStatusDescription = "status.description"
)

// --- Span Names ---

const (
	// SpanPhase is the span name for a single phase's execution.
	SpanPhase = "pipeline.phase"

	// SpanNodeStage is the span name for a single lifecycle stage run on
	// a node (prepare, propagate, begin, go, end, evacuate).
	SpanNodeStage = "pipeline.node.stage"
)

// --- Event Names ---

const (
	// EventStepOverflow marks a node's step request exceeding its
	// remaining budget (a non-fatal diagnostic, not an error).
	EventStepOverflow = "pipeline.progress.step_overflow"

	// EventMemoryClamped marks a consumer's allocation being clamped to
	// its declared min or max during redistribution.
	EventMemoryClamped = "pipeline.memory.clamped"
)

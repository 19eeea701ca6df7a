package observability

// Metric name prefixes
const (
	MetricPrefix = "betledger"
)

// Metric names
const (
	// Settlement metrics
	WagerSettlementsTotal = MetricPrefix + ".settlement.wagers_total"
	SettlementRunsTotal   = MetricPrefix + ".settlement.runs_total"
	SettlementRunDuration = MetricPrefix + ".settlement.run_duration"
	DeadLettersTotal      = MetricPrefix + ".settlement.dead_letters_total"

	// Wager metrics
	WagersPending = MetricPrefix + ".wagers.pending"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"

	// Game metrics
	GameSessionsTotal = MetricPrefix + ".games.sessions_total"
)

// Label keys
const (
	LabelType    = "type"
	LabelFamily  = "family"
	LabelStatus  = "status"
	LabelOutcome = "outcome"
	LabelMarket  = "market"
	LabelGame    = "game"
	LabelState   = "state"
)

// Run outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

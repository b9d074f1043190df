package engine

import "tradeup/internal/wear"

// ContractTypeMix is the only contract shape the scanner builds: one target
// copy plus nine copies of a filler from another collection.
const ContractTypeMix = "MIX_1_9"

// Contract is one profitable trade-up opportunity.
type Contract struct {
	Type             string         `json:"type"`
	StatTrak         bool           `json:"is_stattrak"`
	TargetCollection string         `json:"target_collection"`
	FillerCollection string         `json:"filler_collection"`
	Inputs           ContractInputs `json:"inputs"`
	Financials       Financials     `json:"financials"`
	Outcomes         []Outcome      `json:"outcomes"`
}

// ContractInputs are the two input legs of a contract.
type ContractInputs struct {
	Target InputLeg `json:"target"`
	Filler InputLeg `json:"filler"`
}

// InputLeg describes one input item. Price is what is paid per copy; for the
// filler it includes the near-boundary premium.
type InputLeg struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Condition wear.Condition `json:"condition"`
	Price     float64        `json:"price"`
	AdjWear   float64        `json:"adj_float"`
	RealWear  float64        `json:"real_wear"`
	Irregular bool           `json:"is_irregular"`
	BasePrice float64        `json:"base_price,omitempty"`
	Premium   float64        `json:"premium,omitempty"`
}

// Financials summarizes the economics of one contract.
type Financials struct {
	TotalCost     float64 `json:"total_cost"`
	ExpectedValue float64 `json:"expected_value"`
	ROI           float64 `json:"roi"`
	Profit        float64 `json:"profit"`
}

// Outcome is one possible output item. Probability is in percent; ValueNet is
// the sanitized price after fees. ModelValue is the wear-exact prediction,
// informational only.
type Outcome struct {
	Name         string         `json:"name"`
	Condition    wear.Condition `json:"condition"`
	RealWear     float64        `json:"real_wear"`
	Probability  float64        `json:"probability"`
	ValueNet     float64        `json:"value_net"`
	Profit       float64        `json:"profit"`
	Source       string         `json:"source"`
	WasIrregular bool           `json:"was_irregular"`
	ModelValue   float64        `json:"model_value"`
}

// Outcome sources.
const (
	SourceTarget = "target"
	SourceFiller = "filler"
)

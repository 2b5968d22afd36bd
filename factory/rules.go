/*
Package factory provides JSON to Go rules conversion.

PURPOSE:
  Converts a JSON rules document into the per-branch GroupRules table.
  This enables rules configuration without code changes - an operator can
  adjust a branch's multiplier or cap in a file the server loads at
  startup.

JSON SCHEMA:
  {
    "branches": [
      {
        "branch": "blue",
        "max_loan_multiplier": 3,
        "max_loan_amount": 25000,
        "interest_rate": 0.10,
        "penalty_fee": 500
      }
    ]
  }

  Branches omitted from the document keep their built-in defaults.

SEE ALSO:
  - domain/rules.go: GroupRules definition and defaults
  - config/config.go: Where the rules file path comes from
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/chamapool/savings-engine/domain"
)

// RulesJSON is the JSON representation of the rules table.
type RulesJSON struct {
	Branches []BranchRulesJSON `json:"branches"`
}

// BranchRulesJSON is one branch's entry.
type BranchRulesJSON struct {
	Branch            string          `json:"branch"`
	MaxLoanMultiplier decimal.Decimal `json:"max_loan_multiplier"`
	MaxLoanAmount     decimal.Decimal `json:"max_loan_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	PenaltyFee        decimal.Decimal `json:"penalty_fee"`
}

// ParseRules decodes a rules document and overlays it on the defaults.
func ParseRules(data []byte) (map[domain.Branch]domain.GroupRules, error) {
	var doc RulesJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := domain.DefaultRules()
	for _, b := range doc.Branches {
		branch := domain.Branch(b.Branch)
		if _, ok := rules[branch]; !ok {
			return nil, fmt.Errorf("parse rules: unknown branch %q", b.Branch)
		}
		if !b.MaxLoanMultiplier.IsPositive() {
			return nil, fmt.Errorf("parse rules: branch %q: max_loan_multiplier must be positive", b.Branch)
		}
		if !b.MaxLoanAmount.IsPositive() {
			return nil, fmt.Errorf("parse rules: branch %q: max_loan_amount must be positive", b.Branch)
		}
		rules[branch] = domain.GroupRules{
			MaxLoanMultiplier: b.MaxLoanMultiplier,
			MaxLoanAmount:     b.MaxLoanAmount,
			InterestRate:      b.InterestRate,
			PenaltyFee:        b.PenaltyFee,
		}
	}
	return rules, nil
}

// LoadRulesFile reads and parses a rules document from disk. An empty path
// returns the defaults.
func LoadRulesFile(path string) (map[domain.Branch]domain.GroupRules, error) {
	if path == "" {
		return domain.DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package scenario replays scripted oracle operations, as used by the oracle run command.
package scenario

import (
	"bytes"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a list of steps executed in order.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Which fields are read depends on Op.
//
// Amounts and values are decimal or 0x prefixed hex integers. A "tok" suffix
// multiplies by 10^18.
type Step struct {
	Op          string   `yaml:"op"`
	Account     string   `yaml:"account,omitempty"`
	To          string   `yaml:"to,omitempty"`
	Amount      string   `yaml:"amount,omitempty"`
	RequestID   uint64   `yaml:"id,omitempty"`
	Label       string   `yaml:"label,omitempty"`
	Granularity uint64   `yaml:"granularity,omitempty"`
	Timestamp   uint64   `yaml:"timestamp,omitempty"`
	Index       uint64   `yaml:"index,omitempty"`
	Dispute     uint64   `yaml:"dispute,omitempty"`
	Support     bool     `yaml:"support,omitempty"`
	Value       string   `yaml:"value,omitempty"`
	Values      []string `yaml:"values,omitempty"`
	Seconds     uint64   `yaml:"seconds,omitempty"`
	Var         string   `yaml:"var,omitempty"`

	// Expect, when set, is the revert message the step must fail with.
	Expect string `yaml:"expect,omitempty"`
}

// Load reads a yaml scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return Parse(data)
}

// Parse decodes a yaml scenario, rejecting unknown fields.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	for i, s := range sc.Steps {
		if _, ok := handlers[s.Op]; !ok {
			return nil, errors.Errorf("step %d: unknown op %q", i, s.Op)
		}
	}
	return &sc, nil
}

var tokenUnit = big.NewInt(1e18)

// ParseAmount parses an integer amount, with an optional "tok" suffix.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	unit := big.NewInt(1)
	if rest, ok := strings.CutSuffix(s, "tok"); ok {
		s = strings.TrimSpace(rest)
		unit = tokenUnit
	}
	neg := strings.HasPrefix(s, "-")
	v, ok := math.ParseBig256(strings.TrimPrefix(s, "-"))
	if !ok {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	v.Mul(v, unit)
	if neg {
		v.Neg(v)
	}
	return v, nil
}

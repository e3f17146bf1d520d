package crawler

import (
	"errors"
	"fmt"
	"strings"
)

// Policy bounds the enumeration. Years run from StartYear down to FloorYear
// inclusive; each case type is probed from number 1 until MissThreshold
// probes have come back empty, or past MaxNumber when it is set.
type Policy struct {
	StartYear     int
	FloorYear     int
	CaseTypes     []string
	MissThreshold int
	// MaxNumber caps the case number per type; zero means no cap.
	MaxNumber int
}

// Validate rejects policies that would never terminate or never probe.
func (p Policy) Validate() error {
	if p.StartYear < p.FloorYear {
		return fmt.Errorf("start year %d is before floor year %d", p.StartYear, p.FloorYear)
	}
	if len(p.CaseTypes) == 0 {
		return errors.New("at least one case type is required")
	}
	for i, ct := range p.CaseTypes {
		if strings.TrimSpace(ct) == "" {
			return fmt.Errorf("case type %d is empty", i)
		}
	}
	if p.MissThreshold <= 0 {
		return errors.New("miss threshold must be > 0")
	}
	if p.MaxNumber < 0 {
		return errors.New("max number must be >= 0")
	}
	return nil
}

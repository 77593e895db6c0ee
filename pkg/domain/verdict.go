package domain

import "time"

// VerdictKind classifies the judgment of a test oracle.
type VerdictKind string

const (
	VerdictPass      VerdictKind = "pass"
	VerdictFail      VerdictKind = "fail"
	VerdictUndecided VerdictKind = "undecided"
)

// Verdict is produced by a test oracle over an accepted proposal.
type Verdict struct {
	Kind VerdictKind `json:"kind"`
	Info string      `json:"info,omitempty"`
}

func Pass(info string) Verdict      { return Verdict{Kind: VerdictPass, Info: info} }
func Fail(info string) Verdict      { return Verdict{Kind: VerdictFail, Info: info} }
func Undecided(info string) Verdict { return Verdict{Kind: VerdictUndecided, Info: info} }

// VerdictRecord is a verdict as stored by a verdict sink.
type VerdictRecord struct {
	Goal      string    `json:"goal"`
	Verdict   Verdict   `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
}

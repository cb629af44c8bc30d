package verification

import "recoup/internal/models"

// Score thresholds for classification.
const (
	ThresholdVerified       = 80
	ThresholdLikelyVerified = 50
)

// Score weights. A resolvable bank on top of a valid checksum reaches the
// verified threshold locally; escalation moves the score with the
// name-match verdict.
const (
	scoreChecksum     = 50
	scoreBankResolved = 30
	scoreNameFull     = 20
	scoreNamePartial  = 10
	scoreNameNone     = -40
)

// Signals are the inputs to scoring for one debtor.
type Signals struct {
	ChecksumValid bool
	BankResolved  bool
	// NameMatch is empty when no escalation happened, otherwise
	// full/partial/none from the identity provider.
	NameMatch string
}

// Outcome is the scored verification verdict.
type Outcome struct {
	Score          int
	Classification string
}

// Evaluate turns the signals into a 0-100 score and a classification.
func Evaluate(s Signals) Outcome {
	score := 0
	if s.ChecksumValid {
		score += scoreChecksum
	}
	if s.BankResolved {
		score += scoreBankResolved
	}
	switch s.NameMatch {
	case "full":
		score += scoreNameFull
	case "partial":
		score += scoreNamePartial
	case "none":
		score += scoreNameNone
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Outcome{Score: score, Classification: classify(score, s)}
}

func classify(score int, s Signals) string {
	switch {
	case score >= ThresholdVerified:
		return models.VOPStatusVerified
	case score >= ThresholdLikelyVerified:
		return models.VOPStatusLikelyVerified
	case !s.ChecksumValid:
		return models.VOPStatusRejected
	case s.NameMatch == "none":
		return models.VOPStatusMismatch
	default:
		return models.VOPStatusInconclusive
	}
}

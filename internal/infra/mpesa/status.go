package mpesa

import "strings"

// Outcome is how a reconciler should treat a gateway result.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

const codeCancelledByUser = "1032"

// codes that mean the push can no longer complete
var definitiveFailureCodes = map[string]bool{
	"1019": true, // transaction expired
	"1020": true,
	"1025": true, // error sending push request
	"1026": true,
	"1027": true,
	"1028": true,
	"1029": true,
}

// ClassifyQueryResult maps a status-query answer to an outcome. Anything that is not
// clearly a success or a definitive failure stays pending so a late callback can
// still complete it.
func ClassifyQueryResult(code, desc string) Outcome {
	code = strings.TrimSpace(code)
	if code == "0" {
		return OutcomeSuccess
	}
	if code == codeCancelledByUser || !definitiveFailureCodes[code] {
		return OutcomePending
	}

	d := strings.ToLower(desc)
	if strings.Contains(d, "timeout") || strings.Contains(d, "processing") || strings.Contains(d, "pending") {
		return OutcomePending
	}
	return OutcomeFailed
}

// ClassifyCallback maps a callback result: only code 0 is a success, every other code
// is final because Daraja sends exactly one callback per push.
func ClassifyCallback(res *CallbackResult) Outcome {
	if res != nil && res.Success {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

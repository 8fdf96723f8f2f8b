package orchestrator

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
)

// Verdict is what a fetch result means for the rest of the invocation.
type Verdict int

const (
	VerdictProceed Verdict = iota
	VerdictNoResults
	VerdictRejected
	VerdictUpstreamFailure
	VerdictUnexpectedStatus
)

func (v Verdict) String() string {
	switch v {
	case VerdictProceed:
		return "proceed"
	case VerdictNoResults:
		return "no_results"
	case VerdictRejected:
		return "rejected"
	case VerdictUpstreamFailure:
		return "upstream_failure"
	case VerdictUnexpectedStatus:
		return "unexpected_status"
	default:
		return "unknown"
	}
}

// Classify maps a fetch result to a Verdict. Statuses are checked in the
// order 400, 500, other; only a 200 reaches the result-count check. A 200
// without a results array proceeds so that the preparer rejects its shape.
func Classify(res *stream.FetchResult) Verdict {
	switch {
	case res.StatusCode == http.StatusBadRequest:
		return VerdictRejected
	case res.StatusCode == http.StatusInternalServerError:
		return VerdictUpstreamFailure
	case res.StatusCode != http.StatusOK:
		return VerdictUnexpectedStatus
	}
	if res.Body.HasResultList() && res.Body.ResultCount() == 0 {
		return VerdictNoResults
	}
	return VerdictProceed
}

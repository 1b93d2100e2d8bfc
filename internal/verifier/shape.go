package verifier

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tracecheck/internal/clients/jaeger"
	"tracecheck/internal/models"
)

// OrderOperations is the multiset of operation names one placed order must
// produce. sendNotification appears twice in the demo flow and is kept that way.
var OrderOperations = []string{
	"sendNotification",
	"processOrderPlacement",
	"placeOrder",
	"changeInventory",
	"sendNotification",
	"POST",
}

// Expectation describes the traces a run must observe.
type Expectation struct {
	TraceCount int
	// OperationNames is compared against the first trace as a multiset.
	// Nil skips the span checks.
	OperationNames []string
}

// DefaultExpectation is one trace holding the order flow's six spans.
func DefaultExpectation() Expectation {
	return Expectation{
		TraceCount:     1,
		OperationNames: append([]string(nil), OrderOperations...),
	}
}

var multiset = cmp.Options{
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.EquateEmpty(),
}

// VerifyTraceShape checks that traces holds exactly expectedTraceCount
// entries and that the first trace's operation names equal
// expectedOperationNames, ignoring order. A mismatch is returned as a
// *models.AssertionFailure.
func VerifyTraceShape(traces []jaeger.Trace, expectedTraceCount int, expectedOperationNames []string) error {
	if len(traces) != expectedTraceCount {
		return &models.AssertionFailure{
			Check:    "trace count",
			Expected: expectedTraceCount,
			Actual:   len(traces),
		}
	}
	if len(traces) == 0 || expectedOperationNames == nil {
		return nil
	}

	first := traces[0]
	actual := first.OperationNames()
	diff := cmp.Diff(expectedOperationNames, actual, multiset)

	if len(actual) != len(expectedOperationNames) {
		return &models.AssertionFailure{
			Check:    "span count of trace " + first.TraceID,
			Expected: len(expectedOperationNames),
			Actual:   len(actual),
			Diff:     diff,
		}
	}
	if diff != "" {
		return &models.AssertionFailure{
			Check:    "operation names of trace " + first.TraceID,
			Expected: expectedOperationNames,
			Actual:   actual,
			Diff:     diff,
		}
	}
	return nil
}

package output

import (
	"context"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// Verifier runs the three verification categories against the working tree.
// A failing check is reported through CheckOutcome.OK; the error return is
// reserved for failures to run the check at all.
type Verifier interface {
	Format(ctx context.Context) (tdd.CheckOutcome, error)
	StaticCheck(ctx context.Context) (tdd.CheckOutcome, error)
	Test(ctx context.Context) (tdd.CheckOutcome, error)
}

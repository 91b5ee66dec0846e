package projection

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
)

// Kind names a projection a step writes to.
type Kind string

const (
	KindApplication            Kind = "application"
	KindInitiateApplication    Kind = "initiate_application"
	KindProsecutionCase        Kind = "prosecution_case"
	KindHearing                Kind = "hearing"
	KindHearingApplicationLink Kind = "hearing_application_link"
	KindApplicationCaseLink    Kind = "application_case_link"
	KindApplicationNote        Kind = "application_note"
)

// ParseKind validates a projection kind read back from the outbox.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.TrimSpace(value))
	switch kind {
	case KindApplication, KindInitiateApplication, KindProsecutionCase, KindHearing,
		KindHearingApplicationLink, KindApplicationCaseLink, KindApplicationNote:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown projection kind %q", value)
	}
}

// step applies one event to one projection kind. key is the event's
// ordering key; steps sharing a kind and key must land in event order.
type step struct {
	kind Kind
	key  string
	run  func(context.Context) error
}

func newStep(kind Kind, run func(context.Context) error) step {
	return step{kind: kind, run: run}
}

// skipf reports a guard miss. The step is skipped without error.
func skipf(format string, args ...any) error {
	return apperrors.New(apperrors.CodeGuardMismatch, fmt.Sprintf(format, args...))
}

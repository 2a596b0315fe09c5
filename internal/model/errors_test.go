package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind_MatchesWrappedError(t *testing.T) {
	base := NewAbsenceError(404, "出品が見つかりません")
	wrapped := fmt.Errorf("fetch listing: %w", base)

	if !IsAbsence(wrapped) {
		t.Error("IsAbsence(wrapped) = false, want true")
	}
	if IsAuthorization(wrapped) {
		t.Error("IsAuthorization(wrapped) = true, want false")
	}
}

func TestIsKind_PlainError(t *testing.T) {
	err := errors.New("plain failure")

	for name, check := range map[string]func(error) bool{
		"IsAbsence":       IsAbsence,
		"IsAuthorization": IsAuthorization,
		"IsCredential":    IsCredential,
		"IsValidation":    IsValidation,
	} {
		if check(err) {
			t.Errorf("%s(plain) = true, want false", name)
		}
	}
}

func TestAPIError_ErrorIncludesStatusCode(t *testing.T) {
	withStatus := NewAuthorizationError(403, "権限がありません")
	if got := withStatus.Error(); got != "[authorization] 権限がありません (status 403)" {
		t.Errorf("Error() = %q", got)
	}

	local := NewValidationError("本文が空です")
	if got := local.Error(); got != "[validation] 本文が空です" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConstructors_AssignExpectedKinds(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		kind ErrorKind
	}{
		{"absence", NewAbsenceError(404, "x"), KindAbsence},
		{"authorization", NewAuthorizationError(401, "x"), KindAuthorization},
		{"credential", NewCredentialError("x"), KindCredential},
		{"validation", NewValidationError("x"), KindValidation},
		{"transport", NewTransportError(500, "x"), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Action == "" {
				t.Error("Actionが設定されていません")
			}
		})
	}
}

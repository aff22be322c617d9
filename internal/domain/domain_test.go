package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/teamboard/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. ParseAuthAction
// ---------------------------------------------------------------------------

func TestParseAuthAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.AuthAction
		wantErr bool
	}{
		{in: "login", want: domain.AuthActionLogin},
		{in: "signup", want: domain.AuthActionSignup},
		{in: "  SignUp ", want: domain.AuthActionSignup},
		{in: "LOGIN", want: domain.AuthActionLogin},
		{in: "", wantErr: true},
		{in: "register", wantErr: true},
		{in: "sign-up", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("in="+tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParseAuthAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// 2. SessionClaim.Username
// ---------------------------------------------------------------------------

func TestSessionClaim_Username(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		claim domain.SessionClaim
		want  string
	}{
		{name: "first name wins", claim: domain.SessionClaim{Email: "a@x.com", FirstName: "Ann"}, want: "Ann"},
		{name: "first name trimmed", claim: domain.SessionClaim{Email: "a@x.com", FirstName: "  Ann "}, want: "Ann"},
		{name: "blank first name falls back", claim: domain.SessionClaim{Email: "bob.smith@x.com", FirstName: "   "}, want: "bob.smith"},
		{name: "local part", claim: domain.SessionClaim{Email: "b@x.com"}, want: "b"},
		{name: "no at sign", claim: domain.SessionClaim{Email: "weird"}, want: "weird"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.claim.Username())
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Board helpers
// ---------------------------------------------------------------------------

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := domain.NormalizeTags([]string{" design", "ui", "", "design", "  ", "ui ", "api"})
	assert.Equal(t, []string{"design", "ui", "api"}, got)

	assert.Empty(t, domain.NormalizeTags(nil))
	assert.NotNil(t, domain.NormalizeTags(nil), "empty result must be a non-nil slice")
}

func TestColumnID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "in-review", domain.ColumnID("In Review"))
	assert.Equal(t, "qa-and-testing", domain.ColumnID("  QA   and\ttesting "))
	assert.Equal(t, "", domain.ColumnID("   "))
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	for _, p := range []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, domain.Priority("urgent").Valid())
	assert.False(t, domain.Priority("").Valid())
}

func TestTask_Clone(t *testing.T) {
	t.Parallel()

	orig := domain.Task{ID: "task-1", Title: "x", Tags: []string{"a"}}
	cp := orig.Clone()
	cp.Tags[0] = "b"

	assert.Equal(t, "a", orig.Tags[0], "clone must not share the tags slice")
	assert.Equal(t, []string{}, domain.Task{}.Clone().Tags)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ann@x.com", domain.NormalizeEmail("  Ann@X.com "))
}

package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, time.March, 12, 9, 30, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	today := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		holder     *CredentialHolder
		wantGrant  bool
		wantReason Reason
		wantName   string
	}{
		{
			name:       "unknown credential",
			holder:     nil,
			wantReason: ReasonNotRegistered,
		},
		{
			name:       "active without expiry",
			holder:     &CredentialHolder{Credential: "1234ABCD", FirstName: "Amira", LastName: "Haddad", Status: StatusActive},
			wantGrant:  true,
			wantReason: ReasonGranted,
			wantName:   "Amira Haddad",
		},
		{
			name:       "expired yesterday",
			holder:     &CredentialHolder{Credential: "1234ABCD", Status: StatusActive, CardExpiry: &yesterday},
			wantReason: ReasonExpired,
		},
		{
			name:       "expiring today is still valid",
			holder:     &CredentialHolder{Credential: "1234ABCD", FirstName: "Amira", Status: StatusActive, CardExpiry: &today},
			wantGrant:  true,
			wantReason: ReasonGranted,
			wantName:   "Amira",
		},
		{
			name:       "suspended",
			holder:     &CredentialHolder{Credential: "1234ABCD", Status: "SUSPENDED"},
			wantReason: ReasonInactiveStatus,
		},
		{
			name:       "expiry wins over status",
			holder:     &CredentialHolder{Credential: "1234ABCD", Status: "SUSPENDED", CardExpiry: &yesterday},
			wantReason: ReasonExpired,
		},
		{
			name:       "empty status treated as active",
			holder:     &CredentialHolder{Credential: "1234ABCD", LastName: "Haddad"},
			wantGrant:  true,
			wantReason: ReasonGranted,
			wantName:   "Haddad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate("1234ABCD", tt.holder, now)

			assert.Equal(t, tt.wantGrant, d.Authorized)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, now, d.Timestamp)
			if tt.wantGrant {
				assert.Equal(t, OutcomeGrant, d.Outcome)
				require.NotNil(t, d.EmployeeName)
				assert.Equal(t, tt.wantName, *d.EmployeeName)
			} else {
				assert.Equal(t, OutcomeDeny, d.Outcome)
				assert.Nil(t, d.EmployeeName)
			}
		})
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	now := time.Now()
	holder := &CredentialHolder{Credential: "A1", FirstName: "Jo", Status: StatusActive}

	first := Evaluate("A1", holder, now)
	second := Evaluate("A1", holder, now)

	assert.Equal(t, first, second)
}

func TestDecision_SerialLine(t *testing.T) {
	name := "Amira Haddad"
	assert.Equal(t, "GRANT,Amira Haddad", Decision{Authorized: true, EmployeeName: &name}.SerialLine())
	assert.Equal(t, "DENY", Decision{Reason: ReasonExpired}.SerialLine())
	assert.Equal(t, "DENY", Unavailable("X", time.Now()).SerialLine())
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2024, time.January, 1, 0, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), DateOf(at))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdateEmployeeRequest_Apply(t *testing.T) {
	hire := time.Date(2020, time.May, 4, 0, 0, 0, 0, time.UTC)
	teamID := int64(3)
	base := func() *Employee {
		return &Employee{
			RFID:      "1234ABCD",
			LastName:  "Haddad",
			FirstName: "Amira",
			Email:     "amira@old.example",
			Phone:     "0600000000",
			Address:   "1 rue du Port",
			TeamID:    &teamID,
			HireDate:  &hire,
			Status:    EmployeeStatusActive,
		}
	}

	t.Run("only email changes", func(t *testing.T) {
		emp := base()
		req := UpdateEmployeeRequest{Email: strPtr("amira@new.example")}

		changed, err := req.Apply(emp)
		require.NoError(t, err)

		want := base()
		want.Email = "amira@new.example"
		assert.False(t, changed)
		assert.Equal(t, want, emp)
	})

	t.Run("blank strings keep current values", func(t *testing.T) {
		emp := base()
		req := UpdateEmployeeRequest{LastName: strPtr(""), FirstName: strPtr("   "), HireDate: strPtr("")}

		changed, err := req.Apply(emp)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, base(), emp)
	})

	t.Run("hire date change is reported", func(t *testing.T) {
		emp := base()
		req := UpdateEmployeeRequest{HireDate: strPtr("2021-01-15")}

		changed, err := req.Apply(emp)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC), *emp.HireDate)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := (&UpdateEmployeeRequest{Status: strPtr("gone")}).Apply(base())
		assert.Error(t, err)
	})

	t.Run("lowercase status accepted", func(t *testing.T) {
		emp := base()
		_, err := (&UpdateEmployeeRequest{Status: strPtr("inactive")}).Apply(emp)
		require.NoError(t, err)
		assert.Equal(t, EmployeeStatusInactive, emp.Status)
	})
}

func TestCreateEmployeeRequest_ToEmployee(t *testing.T) {
	t.Run("defaults to active", func(t *testing.T) {
		req := CreateEmployeeRequest{RFID: "A1", LastName: "Haddad", FirstName: "Amira", HireDate: "2022-02-01"}

		emp, err := req.ToEmployee()
		require.NoError(t, err)
		assert.Equal(t, EmployeeStatusActive, emp.Status)
		require.NotNil(t, emp.HireDate)
		assert.Nil(t, emp.CardExpiry)
	})

	t.Run("bad date", func(t *testing.T) {
		req := CreateEmployeeRequest{RFID: "A1", LastName: "Haddad", FirstName: "Amira", CardExpiry: "01/02/2022"}
		_, err := req.ToEmployee()
		assert.EqualError(t, err, "invalid card_expiry format. Use YYYY-MM-DD")
	})

	t.Run("missing names", func(t *testing.T) {
		req := CreateEmployeeRequest{RFID: "A1", LastName: " "}
		_, err := req.ToEmployee()
		assert.Error(t, err)
	})
}

func TestParseAlertStatus(t *testing.T) {
	tests := map[string]AlertStatus{
		"NEW":         AlertStatusNew,
		"open":        AlertStatusNew,
		"In Progress": AlertStatusInProgress,
		"in-progress": AlertStatusInProgress,
		"resolved":    AlertStatusResolved,
		"Closed":      AlertStatusClosed,
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := ParseAlertStatus(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParseAlertStatus("escalated")
	assert.Error(t, err)
}

func TestUpdateAlertRequest_AnyTransition(t *testing.T) {
	alert := &Alert{Status: AlertStatusClosed}

	require.NoError(t, (&UpdateAlertRequest{Status: strPtr("NEW")}).Apply(alert))
	assert.Equal(t, AlertStatusNew, alert.Status)
}

func TestTenureYears(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, TenureYears(now.AddDate(0, 0, -365*3), now))
	assert.Equal(t, 2, TenureYears(now.AddDate(0, 0, -365*3+1), now))
	assert.Equal(t, 0, TenureYears(now.AddDate(0, 0, 10), now))
}

func TestTenureYears_LocalNowAgainstStoredDate(t *testing.T) {
	hire := time.Date(2021, time.October, 16, 0, 0, 0, 0, time.UTC)
	east := time.FixedZone("UTC+2", 2*60*60)

	// 00:30 local is still the previous day in UTC
	assert.Equal(t, 3, TenureYears(hire, time.Date(2024, time.October, 15, 0, 30, 0, 0, east)))
	assert.Equal(t, 2, TenureYears(hire, time.Date(2024, time.October, 14, 23, 59, 0, 0, east)))

	// west of UTC late evening is already the next day in UTC
	west := time.FixedZone("UTC-8", -8*60*60)
	assert.Equal(t, 2, TenureYears(hire, time.Date(2024, time.October, 14, 20, 0, 0, 0, west)))
}

func TestNewCalendarDay(t *testing.T) {
	day := NewCalendarDay(time.Date(2024, time.July, 14, 18, 45, 0, 0, time.Local))

	assert.Equal(t, 14, day.DayOfMonth)
	assert.Equal(t, 7, day.Month)
	assert.Equal(t, 2024, day.Year)
	assert.Equal(t, "Sunday", day.WeekdayName)
	assert.False(t, day.IsHoliday)
}

func TestEnrollRequest_ToQREmployee(t *testing.T) {
	emp, err := (&EnrollRequest{QRCode: "QR-1", Name: "Jo", CardExpiry: "2030-01-01", Areas: " lab,dock "}).ToQREmployee()
	require.NoError(t, err)
	assert.Equal(t, "lab,dock", emp.AuthorizedAreas)
	assert.Equal(t, EmployeeStatusActive, emp.Status)

	_, err = (&EnrollRequest{Name: "Jo"}).ToQREmployee()
	assert.Error(t, err)
}

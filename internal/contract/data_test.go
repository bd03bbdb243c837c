package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/contracte/internal/web/models"
)

func TestBuildPopulationData(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)

	c := &models.ContractWithRelations{
		Contract: models.Contract{
			OrderNumber: 42,
			StartDate:   &start,
			Value:       1500.5,
			Currency:    "RON",
			Notes:       "plata lunară",
		},
		Partner: &models.Partner{
			Name:        "Acme",
			IsCompany:   true,
			CompanyName: "Acme SRL",
			CompanyCUI:  "RO123",
		},
	}
	company := &models.CompanySettings{Name: "Furnizor SA", CUI: "RO999"}

	data := BuildPopulationData(c, company, now, "")

	assert.Equal(t, 42, data.OrderNumber)
	assert.Equal(t, "14.02.2026", data.CurrentDate)
	require.NotNil(t, data.Contract)
	assert.Equal(t, "01.03.2026", data.Contract.StartDate)
	assert.Equal(t, "", data.Contract.EndDate)
	assert.Equal(t, "1500.5", data.Contract.Value)
	require.NotNil(t, data.Beneficiary)
	assert.True(t, data.IsCompany())
	assert.Equal(t, "RO123", data.Beneficiary.CompanyCUI)
	require.NotNil(t, data.Provider)
	assert.Equal(t, "RO999", data.Provider.CUI)
}

func TestBuildPopulationData_MissingRelations(t *testing.T) {
	c := &models.ContractWithRelations{Contract: models.Contract{OrderNumber: 1, Value: 100}}

	data := BuildPopulationData(c, &models.CompanySettings{}, time.Now(), "2006-01-02")
	assert.Nil(t, data.Beneficiary)
	assert.Nil(t, data.Provider)
	assert.Equal(t, "100", data.Contract.Value)

	data = BuildPopulationData(c, nil, time.Now(), "")
	assert.Nil(t, data.Provider)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		status string
		token  string
		want   string
	}{
		{"draft", models.ContractDraft, "", "contract-42.pdf"},
		{"signed", models.ContractSigned, "ab12", "CTR_42_ab12.pdf"},
		{"signed without token", models.ContractSigned, "", "contract-42.pdf"},
		{"archived keeps plain name", models.ContractArchived, "ab12", "contract-42.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.status, 42, tt.token))
		})
	}
}

func TestSignToken(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a, err := SignToken([]byte("key-one"), "c-1", 7, at)
	require.NoError(t, err)
	assert.Len(t, a, 16)

	b, _ := SignToken([]byte("key-one"), "c-1", 7, at)
	assert.Equal(t, a, b)

	c, _ := SignToken([]byte("key-two"), "c-1", 7, at)
	assert.NotEqual(t, a, c)

	d, _ := SignToken([]byte("key-one"), "c-1", 8, at)
	assert.NotEqual(t, a, d)

	_, err = SignToken(make([]byte, 65), "c-1", 7, at)
	assert.Error(t, err)
}

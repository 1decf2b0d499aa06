package validation

import (
	"testing"

	"braidsbar/queue-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestIsPhoneNumber(t *testing.T) {
	cases := []struct {
		phone string
		want  bool
	}{
		{"0241234567", true},
		{"059 891 1140", true},
		{"020-791-3529", true},
		{"0211234567", false},
		{"024123456", false},
		{"02412345678", false},
		{"02412345a7", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsPhoneNumber(tc.phone), tc.phone)
	}
}

func TestStyleValidation(t *testing.T) {
	v := New()

	ok := models.Style{Name: "Knotless", Category: "Knotless", DurationMinutes: 240}
	assert.NoError(t, v.Struct(ok))

	badCategory := ok
	badCategory.Category = "Weaves"
	assert.Error(t, v.Struct(badCategory))

	noDuration := ok
	noDuration.DurationMinutes = 0
	assert.Error(t, v.Struct(noDuration))
}

func TestPhoneTag(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("0551234567", "gh_phone"))
	assert.Error(t, v.Var("1234567890", "gh_phone"))
}

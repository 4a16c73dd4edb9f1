package fiscalcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mario Rossi, male, born 01 Aug 1985 in Roma (H501)
const marioRossi = "RSSMRA85M01H501Q"

// Laura Bianchi, female, born 08 Dec 1990 in Milano (F205)
const lauraBianchi = "BNCLRA90T48F205O"

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid male code", marioRossi, true},
		{"valid female code", lauraBianchi, true},
		{"lowercase accepted", "rssmra85m01h501q", true},
		{"omocodia letters in digit positions", "RSSMRA85M01H50MI", true},
		{"too short", "RSSMRA85M01H501", false},
		{"digit in surname block", "RSS1RA85M01H501Q", false},
		{"invalid month letter", "RSSMRA85Z01H501Q", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateFormat(tt.code))
		})
	}
}

func TestNormalizeOmocodia(t *testing.T) {
	norm, err := NormalizeOmocodia("RSSMRA85M01H50MI")
	require.NoError(t, err)
	assert.Equal(t, "RSSMRA85M01H501I", norm)

	// idempotent: a second application changes nothing
	again, err := NormalizeOmocodia(norm)
	require.NoError(t, err)
	assert.Equal(t, norm, again)

	_, err = NormalizeOmocodia("not a code")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractGender(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		gender  Gender
		wantErr bool
	}{
		{"day 01 is male", marioRossi, GenderMale, false},
		{"day 48 is female", lauraBianchi, GenderFemale, false},
		{"day 40 is male", "RSSMRA85M40H501X", GenderMale, false},
		{"day 72 is out of range", "RSSMRA85M72H501X", "", true},
		{"day 00 is out of range", "RSSMRA85M00H501X", "", true},
		{"malformed code", "RSSMRA", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gender, err := ExtractGender(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.gender, gender)
		})
	}
}

func TestExtractBirthDate(t *testing.T) {
	date, err := ExtractBirthDate(marioRossi)
	require.NoError(t, err)
	assert.Equal(t, BirthDate{Year: 1985, Month: time.August, Day: 1}, date)

	// female codes carry day+40
	date, err = ExtractBirthDate(lauraBianchi)
	require.NoError(t, err)
	assert.Equal(t, BirthDate{Year: 1990, Month: time.December, Day: 8}, date)

	// two-digit years at or below the current one resolve to 20xx
	date, err = ExtractBirthDate("RSSMRA09M01H501X")
	require.NoError(t, err)
	assert.Equal(t, 2009, date.Year)

	_, err = ExtractBirthDate("garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractCadastralCode(t *testing.T) {
	cadastral, err := ExtractCadastralCode(marioRossi)
	require.NoError(t, err)
	assert.Equal(t, "H501", cadastral)

	// foreign birthplaces return the code with a dedicated error
	cadastral, err = ExtractCadastralCode("RSSMRA85M01Z404N")
	assert.ErrorIs(t, err, ErrForeignBirthplace)
	assert.Equal(t, "Z404", cadastral)

	_, err = ExtractCadastralCode("")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidateChecksum(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid male code", marioRossi, true},
		{"valid female code", lauraBianchi, true},
		{"valid omocodia variant", "RSSMRA85M01H50MI", true},
		{"wrong check letter", "RSSMRA85M01H501Z", false},
		{"mutated body", "RSSMRA85M02H501Q", false},
		{"malformed", "RSSMRA85M01H501", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateChecksum(tt.code))
		})
	}
}

func TestGenerateSurnameCode(t *testing.T) {
	tests := []struct {
		surname string
		want    string
	}{
		{"ROSSI", "RSS"},
		{"Bianchi", "BNC"},
		{"Fo", "FOX"},
		{"Re", "REX"},
		{"De Luca", "DLC"},
		{"", "XXX"},
	}

	for _, tt := range tests {
		t.Run(tt.surname, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSurnameCode(tt.surname))
		})
	}
}

func TestGenerateNameCode(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		// two consonants only: consonants+vowels rule
		{"MARIO", "MRA"},
		{"Laura", "LRA"},
		// four or more consonants: 1st, 3rd, 4th
		{"GIANFRANCO", "GFR"},
		{"Maria Luisa", "MLS"},
		{"Bo", "BOX"},
		{"", "XXX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateNameCode(tt.name))
		})
	}
}

func TestSuggestCompoundName(t *testing.T) {
	dictionary := []NameEntry{
		{Name: "LUIGI", Gender: GenderMale},
		{Name: "LUISA", Gender: GenderFemale},
		{Name: "ANNA", Gender: GenderFemale},
	}

	// code encodes "MLS" (Maria Luisa) but the stored name is just Maria
	suggestion, ok := SuggestCompoundName("BNCMLS90T48F205D", "Maria", dictionary)
	require.True(t, ok)
	assert.Equal(t, "Luisa", suggestion)

	// male candidates are skipped for a female code
	_, ok = SuggestCompoundName("BNCMLS90T48F205D", "Maria", []NameEntry{
		{Name: "LUIGI", Gender: GenderMale},
	})
	assert.False(t, ok)

	// stored name already matches: nothing to suggest
	_, ok = SuggestCompoundName(lauraBianchi, "Laura", dictionary)
	assert.False(t, ok)

	// malformed code
	_, ok = SuggestCompoundName("nope", "Maria", dictionary)
	assert.False(t, ok)
}
